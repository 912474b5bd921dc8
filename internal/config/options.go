package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Options are the options spec.md §6 recognizes (Debug, Write,
// Suppress), expanded per SPEC_FULL.md's Configuration section.
//
// Layering, lowest to highest precedence: built-in defaults from
// Defaults(), an optional .deadvalue.yaml project file, then CLI
// flags applied on top by the caller.
type Options struct {
	Debug    bool     `yaml:"debug"`
	Write    bool     `yaml:"write"`
	Suppress []string `yaml:"suppress"`

	// Parallel enables per-compilation-unit parallel preprocessing
	// (spec.md §5); constraint generation always runs sequentially.
	// Off by default.
	Parallel bool `yaml:"parallel"`

	// CacheDir is where internal/cache keeps its database; a --debug
	// run stores its dumps there. Loading artifacts does not read from
	// or write to the cache's artifact table.
	CacheDir string `yaml:"cacheDir"`

	// Serve, if non-empty, is a "host:port" the debug introspection
	// service (internal/debugserver) listens on.
	Serve string `yaml:"serve"`

	// Color controls ANSI underlining of reported excerpts:
	// "auto" (default, TTY-detected), "always", or "never".
	Color string `yaml:"color"`
}

// Defaults returns the built-in option defaults.
func Defaults() Options {
	return Options{
		CacheDir: CacheDirName,
		Color:    "auto",
	}
}

// Load reads the project config file (if present) starting from dir
// and merges it over the built-in defaults. A missing file is not an
// error; a malformed one is.
func Load(dir string) (Options, error) {
	opts := Defaults()

	path := filepath.Join(dir, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing %s: %w", path, err)
	}
	return opts, nil
}

// IsSuppressed reports whether file matches any of the configured
// suppress patterns. A pattern matches either as a path prefix or,
// per SPEC_FULL.md's "Suppress-path globs" supplement, as a
// filepath.Match glob.
func (o Options) IsSuppressed(file string) bool {
	for _, pat := range o.Suppress {
		if matchPrefixOrGlob(pat, file) {
			return true
		}
	}
	return false
}

func matchPrefixOrGlob(pattern, file string) bool {
	if len(pattern) <= len(file) && file[:len(pattern)] == pattern {
		return true
	}
	ok, err := filepath.Match(pattern, file)
	return err == nil && ok
}
