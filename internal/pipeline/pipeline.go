// Package pipeline wires the analyzer's stages — load, preprocess,
// closure solve, dependency-graph solve, report — into the ordered
// Processor chain spec.md §2 describes, the way the teacher's own
// internal/pipeline composes a parser+analyzer Pipeline out of
// independent Processor stages.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/cmtlang/deadvalue/internal/artifact"
	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/depgraph"
	"github.com/cmtlang/deadvalue/internal/diagnostics"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/obslog"
	"github.com/cmtlang/deadvalue/internal/preprocess"
	"github.com/cmtlang/deadvalue/internal/reporter"
	"golang.org/x/sync/errgroup"
)

// PipelineContext threads state through every stage: each Processor
// reads what earlier stages left and adds its own contribution. Run
// always calls every stage in order — later stages are written to
// no-op once an earlier one leaves Fatal set or its inputs empty —
// so unit-level diagnostics from independent stages are never lost,
// per SPEC_FULL.md's error-handling section.
type PipelineContext struct {
	Opts  config.Options
	Files []string

	Units []*cmt.Unit
	Alloc *label.Allocator
	Index *preprocess.Index

	Closure *closure.Map

	Graph    *depgraph.Graph
	Liveness *depgraph.Liveness
	Warnings []reporter.Warning

	UnitErrs []*diagnostics.UnitError
	Fatal    error
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline is an ordered sequence of stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Default builds the standard load -> preprocess -> closure ->
// depgraph -> report chain.
func Default() *Pipeline {
	return New(
		LoadStage{},
		PreprocessStage{},
		ClosureStage{},
		DepGraphStage{},
		ReportStage{},
	)
}

// LoadStage reads and decodes every compilation-unit artifact named
// in ctx.Files. A single unreadable artifact is fatal for the whole
// run (spec.md §7's "missing/unreadable artifact" tier).
type LoadStage struct{}

func (LoadStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Fatal != nil {
		return ctx
	}
	units := make([]*cmt.Unit, 0, len(ctx.Files))
	for _, f := range ctx.Files {
		u, err := artifact.Load(f)
		if err != nil {
			ctx.Fatal = err
			return ctx
		}
		units = append(units, u)
		obslog.Debugf(ctx.Opts, "loaded %s (%s)", f, u.Name)
	}
	ctx.Units = units
	return ctx
}

// PreprocessStage assigns labels and builds the AST index (spec.md
// §4.1). A single shared Allocator and Index keep labels globally
// unique across every unit (spec.md §3's label-uniqueness invariant),
// which is why, even with ctx.Opts.Parallel set (spec.md §5's
// optional, default-off per-unit parallelism), the stage still runs
// every unit's walk against the same allocator/index pair — only
// guarded by a mutex so concurrent goroutines can share them safely.
type PreprocessStage struct{}

func (PreprocessStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Fatal != nil || len(ctx.Units) == 0 {
		return ctx
	}
	alloc, index := preprocess.NewRun()
	ctx.Alloc = alloc
	ctx.Index = index

	if !ctx.Opts.Parallel {
		for _, u := range ctx.Units {
			if err := preprocess.Unit(u, alloc, index); err != nil {
				ctx.UnitErrs = append(ctx.UnitErrs, asUnitError(u.File, err))
			}
		}
		return ctx
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, u := range ctx.Units {
		u := u
		g.Go(func() error {
			mu.Lock()
			err := preprocess.Unit(u, alloc, index)
			mu.Unlock()
			if err != nil {
				mu.Lock()
				ctx.UnitErrs = append(ctx.UnitErrs, asUnitError(u.File, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx
}

func asUnitError(file string, err error) *diagnostics.UnitError {
	if ue, ok := err.(*diagnostics.UnitError); ok {
		return ue
	}
	return &diagnostics.UnitError{Unit: file, Err: err}
}

// ClosureStage runs the 0-CFA fixed-point solver (spec.md §4.2, §4.3).
type ClosureStage struct{}

func (ClosureStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Fatal != nil || len(ctx.Units) == 0 {
		return ctx
	}
	ctx.Closure = closure.Solve(ctx.Units)
	obslog.Debugf(ctx.Opts, "closure map: %d entries", ctx.Closure.Size())
	return ctx
}

// DepGraphStage builds the dependency graph and solves the liveness
// fixed point over it (spec.md §4.5, §4.6).
type DepGraphStage struct{}

func (DepGraphStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Fatal != nil || ctx.Closure == nil {
		return ctx
	}
	ctx.Graph = depgraph.Collect(ctx.Units, ctx.Closure)
	ctx.Liveness = depgraph.Solve(ctx.Graph)
	obslog.Debugf(ctx.Opts, "dependency graph: %d nodes", len(ctx.Graph.Nodes()))
	return ctx
}

// ReportStage turns the liveness map into the sorted warning list
// (spec.md §4.7).
type ReportStage struct{}

func (ReportStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Fatal != nil || ctx.Liveness == nil {
		return ctx
	}
	ctx.Warnings = reporter.Collect(ctx.Units, ctx.Closure, ctx.Liveness, ctx.Opts)
	return ctx
}

// Summary renders a short run summary for the CLI.
func Summary(ctx *PipelineContext) string {
	if ctx.Fatal != nil {
		return fmt.Sprintf("fatal: %v", ctx.Fatal)
	}
	return fmt.Sprintf("%d unit(s), %d warning(s), %d unit error(s)",
		len(ctx.Units), len(ctx.Warnings), len(ctx.UnitErrs))
}
