package pipeline_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmtlang/deadvalue/internal/artifact"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/pipeline"
	"github.com/cmtlang/deadvalue/internal/reporter"
)

// writeArtifact encodes a hand-built unit to dir/name and returns its
// path, mirroring what a real host-compiler artifact on disk looks
// like from LoadStage's point of view.
func writeArtifact(t *testing.T, dir, name string, unit *cmt.Unit) string {
	t.Helper()
	var buf bytes.Buffer
	if err := artifact.Encode(&buf, unit); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func buildUnusedAndRaiseUnit() *cmt.Unit {
	idents := ident.NewAllocator("M")
	unused := idents.Fresh("unused")
	main := idents.Fresh("main")
	x := idents.Fresh("x")

	letExpr := &cmt.Let{
		Pattern: &cmt.PVar{Ident: x},
		Value:   &cmt.Const{Value: float64(5)},
		Body:    &cmt.Raise{Value: &cmt.Var{Name: "x", Ref: x}},
	}
	module := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "unused", Ident: unused, Value: &cmt.Const{Value: float64(42)}},
			{Name: "main", Ident: main, Value: letExpr},
		},
	}
	return &cmt.Unit{Name: "M", File: "m.cmt.json", Body: module, Signature: []string{"main"}}
}

func runDefault(t *testing.T, opts config.Options, files []string) *pipeline.PipelineContext {
	t.Helper()
	ctx := &pipeline.PipelineContext{Opts: opts, Files: files}
	return pipeline.Default().Run(ctx)
}

func TestDefaultPipelineReportsDeadBinding(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "m.cmt.json", buildUnusedAndRaiseUnit())

	result := runDefault(t, config.Defaults(), []string{path})

	if result.Fatal != nil {
		t.Fatalf("unexpected fatal error: %v", result.Fatal)
	}
	if len(result.UnitErrs) != 0 {
		t.Fatalf("unexpected unit errors: %v", result.UnitErrs)
	}

	foundUnused := false
	for _, w := range result.Warnings {
		if w.Kind == reporter.DeadBinding {
			if w.Name == "x" {
				t.Errorf("x is used inside the raise and should not be reported dead")
			}
			if w.Name == "unused" {
				foundUnused = true
			}
		}
	}
	if !foundUnused {
		t.Errorf("expected a dead-binding warning for unused, got %v", result.Warnings)
	}

	summary := pipeline.Summary(result)
	if summary == "" {
		t.Error("expected a non-empty summary")
	}
}

func TestDefaultPipelineParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "m.cmt.json", buildUnusedAndRaiseUnit())

	opts := config.Defaults()
	opts.Parallel = true
	result := runDefault(t, opts, []string{path})

	if result.Fatal != nil {
		t.Fatalf("unexpected fatal error: %v", result.Fatal)
	}
	var names []string
	for _, w := range result.Warnings {
		if w.Kind == reporter.DeadBinding {
			names = append(names, w.Name)
		}
	}
	if len(names) != 1 || names[0] != "unused" {
		t.Errorf("expected exactly one dead binding (unused) under --parallel, got %v", names)
	}
}

func TestUnreadableArtifactIsFatalAndShortCircuits(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.cmt.json")

	result := runDefault(t, config.Defaults(), []string{missing})

	if result.Fatal == nil {
		t.Fatal("expected a fatal error for an unreadable artifact")
	}
	if result.Units != nil {
		t.Errorf("Units should stay unset once loading fails, got %v", result.Units)
	}
	if result.Closure != nil {
		t.Errorf("later stages must no-op once Fatal is set, got a Closure map")
	}
	if result.Warnings != nil {
		t.Errorf("later stages must no-op once Fatal is set, got warnings %v", result.Warnings)
	}
}
