package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmtlang/deadvalue/internal/config"
)

func TestDefaults(t *testing.T) {
	opts := config.Defaults()
	if opts.CacheDir != config.CacheDirName {
		t.Errorf("expected default CacheDir %q, got %q", config.CacheDirName, opts.CacheDir)
	}
	if opts.Color != "auto" {
		t.Errorf("expected default Color %q, got %q", "auto", opts.Color)
	}
	if opts.Debug || opts.Write || opts.Parallel {
		t.Errorf("expected Debug/Write/Parallel to default false, got %+v", opts)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	opts, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load with no project file should not error, got %v", err)
	}
	want := config.Defaults()
	if opts.CacheDir != want.CacheDir || opts.Color != want.Color || opts.Debug != want.Debug ||
		opts.Write != want.Write || opts.Parallel != want.Parallel || len(opts.Suppress) != 0 {
		t.Errorf("expected defaults when no project file is present, got %+v", opts)
	}
}

func TestLoadMergesProjectFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	data := "debug: true\nsuppress:\n  - vendor/\n  - \"*_generated.cmt.json\"\n"
	if err := os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !opts.Debug {
		t.Errorf("expected debug: true to be picked up from the project file")
	}
	if opts.CacheDir != config.CacheDirName {
		t.Errorf("expected the project file's silence on cacheDir to leave the default in place, got %q", opts.CacheDir)
	}
	if len(opts.Suppress) != 2 {
		t.Fatalf("expected 2 suppress patterns, got %v", opts.Suppress)
	}
}

func TestLoadMalformedProjectFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte("not: valid: yaml: at: all:"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := config.Load(dir); err == nil {
		t.Error("expected Load to error on a malformed project file")
	}
}

func TestIsSuppressedPrefixAndGlob(t *testing.T) {
	opts := config.Options{Suppress: []string{"vendor/", "*_generated.cmt.json"}}

	cases := []struct {
		file string
		want bool
	}{
		{"vendor/pkg/m.cmt.json", true},
		{"src/vendor/m.cmt.json", false},
		{"widget_generated.cmt.json", true},
		{"widget.cmt.json", false},
	}
	for _, tc := range cases {
		if got := opts.IsSuppressed(tc.file); got != tc.want {
			t.Errorf("IsSuppressed(%q) = %v, want %v", tc.file, got, tc.want)
		}
	}
}
