// Command deadvalue runs the whole-program dead-value analyzer over
// one or more compilation-unit artifacts (spec.md §6). Flag parsing
// follows the teacher's own manual os.Args dispatch style
// (cmd/funxy/main.go) rather than the flag package, since the
// teacher's CLI never reaches for it either.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cmtlang/deadvalue/internal/cache"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/debugserver"
	"github.com/cmtlang/deadvalue/internal/pipeline"
	"github.com/cmtlang/deadvalue/internal/reporter"
	"github.com/cmtlang/deadvalue/internal/session"
	"github.com/cmtlang/deadvalue/internal/utils"
	"github.com/dustin/go-humanize"
)

func usage() {
	fmt.Fprintf(os.Stderr, `deadvalue %s — whole-program dead-value analyzer

Usage:
  deadvalue [flags] <artifact%s> [more artifacts...]

Flags:
  --debug              verbose operational logging to stderr
  --write              back-annotate dead-expression/binding sites in source
  --suppress=<pat>     suppress a file prefix or glob (repeatable)
  --parallel           enable per-unit parallel preprocessing
  --serve=host:port    start the --debug introspection gRPC server
  --color=auto|always|never
  --version
  --help
`, config.Version, config.ArtifactExt)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	opts, files, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.showHelp {
		usage()
		return 0
	}
	if opts.showVersion {
		fmt.Println(config.Version)
		return 0
	}
	files, err = expandFiles(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "deadvalue:", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "deadvalue: no artifact files given")
		usage()
		return 2
	}

	projOpts, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, "deadvalue:", err)
		return 1
	}
	opts.applyTo(&projOpts)

	sess := session.New()
	start := time.Now()

	ctx := &pipeline.PipelineContext{Opts: projOpts, Files: files}
	ctx = pipeline.Default().Run(ctx)

	if ctx.Fatal != nil {
		fmt.Fprintln(os.Stderr, "deadvalue: fatal:", ctx.Fatal)
		return 1
	}
	for _, ue := range ctx.UnitErrs {
		fmt.Fprintln(os.Stderr, "deadvalue: skipping unit:", ue)
	}

	printer := reporter.NewPrinter(projOpts)
	for _, w := range ctx.Warnings {
		fmt.Print(printer.Render(w))
	}

	if projOpts.Write {
		if err := writeBack(ctx, sess); err != nil {
			fmt.Fprintln(os.Stderr, "deadvalue: --write:", err)
		}
	}

	if projOpts.CacheDir != "" {
		if c, err := cache.Open(projOpts.CacheDir); err == nil {
			dumpDebug(c, sess, ctx)
			if projOpts.Serve != "" {
				serve(c, sess, ctx, projOpts.Serve)
			}
			c.Close()
		} else if projOpts.Debug {
			fmt.Fprintln(os.Stderr, "deadvalue: cache unavailable:", err)
		}
	}

	fmt.Fprintf(os.Stderr, "deadvalue: %s — %s units, %s warnings, %s unit errors\n",
		humanize.Time(start),
		humanize.Comma(int64(len(ctx.Units))),
		humanize.Comma(int64(len(ctx.Warnings))),
		humanize.Comma(int64(len(ctx.UnitErrs))),
	)

	if len(ctx.Warnings) > 0 {
		return 1
	}
	return 0
}

// cliOverrides holds flag-derived values layered on top of the
// project config file, plus the two informational flags.
type cliOverrides struct {
	debugSet, debug       bool
	writeSet, write       bool
	parallelSet, parallel bool
	suppress              []string
	serve                 string
	color                 string
	showHelp, showVersion bool
}

func (o cliOverrides) applyTo(opts *config.Options) {
	if o.debugSet {
		opts.Debug = o.debug
	}
	if o.writeSet {
		opts.Write = o.write
	}
	if o.parallelSet {
		opts.Parallel = o.parallel
	}
	if len(o.suppress) > 0 {
		opts.Suppress = append(opts.Suppress, o.suppress...)
	}
	if o.serve != "" {
		opts.Serve = o.serve
	}
	if o.color != "" {
		opts.Color = o.color
	}
}

// expandFiles resolves each given path to one or more artifact files:
// a path already ending in config.ArtifactExt is taken as-is, any
// other path is passed through utils.GetModuleDir (which returns it
// unchanged, since it lacks that extension) and walked as a directory
// root for every file carrying that extension.
func expandFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if strings.HasSuffix(p, config.ArtifactExt) {
			out = append(out, p)
			continue
		}
		root := utils.GetModuleDir(p)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, config.ArtifactExt) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	return out, nil
}

func parseArgs(args []string) (cliOverrides, []string, error) {
	var o cliOverrides
	var files []string
	for _, a := range args {
		switch {
		case a == "--help" || a == "-help" || a == "-h":
			o.showHelp = true
		case a == "--version" || a == "-version":
			o.showVersion = true
		case a == "--debug":
			o.debugSet, o.debug = true, true
		case a == "--write":
			o.writeSet, o.write = true, true
		case a == "--parallel":
			o.parallelSet, o.parallel = true, true
		case strings.HasPrefix(a, "--suppress="):
			o.suppress = append(o.suppress, strings.TrimPrefix(a, "--suppress="))
		case strings.HasPrefix(a, "--serve="):
			o.serve = strings.TrimPrefix(a, "--serve=")
		case strings.HasPrefix(a, "--color="):
			o.color = strings.TrimPrefix(a, "--color=")
		case strings.HasPrefix(a, "-"):
			return o, nil, fmt.Errorf("deadvalue: unrecognized flag %q", a)
		default:
			files = append(files, a)
		}
	}
	return o, files, nil
}

// writeBack inserts a "(* dead: ... *)" marker at each warning's byte
// range, after copying the unmodified source into a UUID-suffixed
// backup (SPEC_FULL.md's "--write back-annotation" supplement).
func writeBack(ctx *pipeline.PipelineContext, sess *session.Session) error {
	byFile := make(map[string][]reporter.Warning)
	for _, w := range ctx.Warnings {
		byFile[w.Pos.File] = append(byFile[w.Pos.File], w)
	}
	for file, warnings := range byFile {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		if err := backup(file, data, sess); err != nil {
			return err
		}
		annotated := annotate(data, warnings)
		if err := os.WriteFile(file, annotated, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", file, err)
		}
	}
	return nil
}

func backup(file string, data []byte, sess *session.Session) error {
	dir := config.BackupDirName
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	name := filepath.Base(file) + sess.BackupSuffix()
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// annotate inserts markers at the end offset of each warning,
// descending by offset so earlier insertions don't shift later ones.
func annotate(data []byte, warnings []reporter.Warning) []byte {
	sortDesc(warnings)
	out := data
	for _, w := range warnings {
		marker := []byte(fmt.Sprintf(" (* dead: %s *)", w.Kind))
		at := w.Pos.EndOffset
		if at < 0 || at > len(out) {
			continue
		}
		merged := make([]byte, 0, len(out)+len(marker))
		merged = append(merged, out[:at]...)
		merged = append(merged, marker...)
		merged = append(merged, out[at:]...)
		out = merged
	}
	return out
}

func sortDesc(ws []reporter.Warning) {
	for i := 1; i < len(ws); i++ {
		for j := i; j > 0 && ws[j-1].Pos.EndOffset < ws[j].Pos.EndOffset; j-- {
			ws[j-1], ws[j] = ws[j], ws[j-1]
		}
	}
}

func dumpDebug(c *cache.Cache, sess *session.Session, ctx *pipeline.PipelineContext) {
	if !ctx.Opts.Debug {
		return
	}
	src := &dumpSource{sess: sess, ctx: ctx}
	if body, err := src.ClosureJSON(); err == nil {
		c.StoreDump(sess.String(), "closure", body)
	}
	if body, err := src.LivenessJSON(); err == nil {
		c.StoreDump(sess.String(), "liveness", body)
	}
	if body, err := src.WarningsJSON(); err == nil {
		c.StoreDump(sess.String(), "warnings", body)
	}
}

func serve(c *cache.Cache, sess *session.Session, ctx *pipeline.PipelineContext, addr string) {
	srv, err := debugserver.New(&dumpSource{sess: sess, ctx: ctx})
	if err != nil {
		fmt.Fprintln(os.Stderr, "deadvalue: debug server:", err)
		return
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		srv.Stop()
	}()
	if err := srv.Serve(addr); err != nil {
		fmt.Fprintln(os.Stderr, "deadvalue: debug server:", err)
	}
}
