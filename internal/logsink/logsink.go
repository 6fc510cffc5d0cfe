// Copyright 2026 The Achlys Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logsink is Achlys's verbosity-gated diagnostic log, colored
// with github.com/fatih/color. Grounded on the original implementation's
// addColor()-based verbose output (original_source/TaintChecker/TaintChecker.cpp),
// which prints progressively more detail at -v 0 through -v 4 and, at the
// highest level, bypasses buffering to print as instructions are
// analyzed rather than waiting for the pass to finish.
package logsink

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Level is a verbosity tier, matching the CLI's --verbose/-v 0-4 range.
type Level int

const (
	Silent Level = iota
	Info
	Debug
	Trace
	All
)

// Sink is a leveled log writer. Below All, messages accumulate in an
// internal buffer and are only written out on Flush, so a caller can
// discard diagnostics entirely for a run that found nothing worth
// reporting; at All, every message bypasses the buffer and is written
// immediately, for live progress-watching on long-running analyses.
type Sink struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
	buf   bytes.Buffer
}

func New(out io.Writer, level Level) *Sink {
	return &Sink{out: out, level: level}
}

func (s *Sink) Infof(format string, args ...any)  { s.logf(Info, "", format, args...) }
func (s *Sink) Debugf(format string, args ...any) { s.logf(Debug, "yellow", format, args...) }
func (s *Sink) Tracef(format string, args ...any) { s.logf(Trace, "cyan", format, args...) }
func (s *Sink) Warnf(format string, args ...any)  { s.logf(Info, "red", format, args...) }

func (s *Sink) logf(level Level, colorName, format string, args ...any) {
	if level > s.level {
		return
	}
	line := colorize(colorName, fmt.Sprintf(format, args...))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level >= All {
		fmt.Fprintln(s.out, line)
		return
	}
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
}

// Flush writes any buffered messages out and clears the buffer. A no-op
// at level All, where every message was already written immediately.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		return
	}
	io.Copy(s.out, &s.buf)
	s.buf.Reset()
}

func colorize(name, msg string) string {
	switch name {
	case "yellow":
		return color.YellowString(msg)
	case "cyan":
		return color.CyanString(msg)
	case "red":
		return color.RedString(msg)
	default:
		return msg
	}
}
