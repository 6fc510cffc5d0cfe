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

// Package achlys is the top-level analysis driver: it wires components
// A through H together over a whole module and owns the two pieces of
// state spec.md §9 flags as properly belonging to one analysis session
// rather than a global: the NaN-id allocator and the diagnostic log.
// Grounded on runOnModule in original_source/TaintChecker/TaintChecker.cpp.
package achlys

import (
	"fmt"

	"github.com/achlys-project/achlys/internal/collapse"
	"github.com/achlys-project/achlys/internal/filter"
	"github.com/achlys-project/achlys/internal/interproc"
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/logsink"
	"github.com/achlys-project/achlys/internal/nanid"
	"github.com/achlys-project/achlys/internal/oracle"
	"github.com/achlys-project/achlys/internal/oracle/refimpl"
	"github.com/achlys-project/achlys/internal/rewrite"
	"github.com/achlys-project/achlys/internal/transfer"
)

// Options controls one Analyze call.
type Options struct {
	// FaultInjection, when true, rewrites the module in place: every
	// surviving hazard gets a fault-injection probe spliced in right
	// after the value that produced it (§4.H).
	FaultInjection bool
	// EntryPoint names the root function to start collapsing from. If
	// empty, "main" is used.
	EntryPoint string
}

// Report is one Analyze call's complete result.
type Report struct {
	Confirmed       []collapse.Confirmed
	Hazards         []filter.Hazard
	RewriteRequests []filter.RewriteRequest
	InjectedCalls   []*ir.Call
}

// Driver orchestrates a full analysis run over a module.
type Driver struct {
	Log        *logsink.Sink
	Classifier *transfer.Classifier
	Demangler  oracle.Demangler

	nanIDs *nanid.Allocator
}

// NewDriver constructs a Driver with the default recognized-function
// tables and a fresh, session-owned NaN-id allocator.
func NewDriver(log *logsink.Sink) *Driver {
	if log == nil {
		log = logsink.New(nil, logsink.Silent)
	}
	return &Driver{
		Log:        log,
		Classifier: transfer.DefaultClassifier(),
		Demangler:  refimpl.PassthroughDemangler{},
		nanIDs:     nanid.New(),
	}
}

// oracleFactory builds the reference Dominance/LoopInfo/MemoryDependence
// backends for f. A caller embedding Achlys against real compiler
// infrastructure would supply its own factory instead of calling
// Analyze directly; see internal/oracle's doc comment.
func oracleFactory(f *ir.Function) (oracle.Dominance, oracle.LoopInfo, oracle.MemoryDependence) {
	dom := refimpl.NewSimpleDominance(f)
	loop := refimpl.NewCFGLoopInfo(f, dom)
	return dom, loop, refimpl.LocalMemDep{}
}

// Analyze runs components A through H over m and returns the confirmed,
// filtered findings. If opts.FaultInjection is set, m is additionally
// rewritten in place with fault-injection probes at every surviving
// hazard.
func (d *Driver) Analyze(m *ir.Module, opts Options) (*Report, error) {
	entryName := opts.EntryPoint
	if entryName == "" {
		entryName = "main"
	}
	root := m.FunctionNamed(entryName)
	if root == nil {
		return nil, fmt.Errorf("achlys: module %q has no entry point %q", m.Name, entryName)
	}

	d.Log.Infof("analyzing module %q (%d functions), entry point %q", m.Name, len(m.Functions), entryName)

	builder := &interproc.Builder{Classifier: d.Classifier, Oracles: oracleFactory, NaNIDs: d.nanIDs}
	cache := interproc.NewCache(builder)
	cache.BuildAll(m)
	d.Log.Debugf("built %d function summaries, %d NaN sources found", len(m.Functions), d.nanIDs.Count())

	solver := collapse.NewSolver(cache)
	confirmed := solver.CollapseRoot(root)
	d.Log.Debugf("collapse confirmed %d attacker-controlled NaN finding(s)", len(confirmed))

	flt := &filter.Filter{Cache: cache}
	hazards := flt.Apply(confirmed)
	d.Log.Infof("%d finding(s) survive the branch-reachability filter", len(hazards))

	reqs := filter.RewriteRequests(hazards)
	report := &Report{Confirmed: confirmed, Hazards: hazards, RewriteRequests: reqs}

	if opts.FaultInjection {
		rw := rewrite.NewRewriter(m)
		calls, err := rw.ApplyAll(reqs)
		report.InjectedCalls = calls
		if err != nil {
			return report, fmt.Errorf("achlys: fault injection: %w", err)
		}
		d.Log.Infof("injected %d fault probe(s)", len(calls))
	}

	d.Log.Flush()
	return report, nil
}
