package reporter

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/mattn/go-isatty"
)

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Printer renders warnings as {location, message, source excerpt with
// underline}, caching each source file's lines the first time they're
// needed.
type Printer struct {
	color bool
	lines map[string][]string
}

// NewPrinter decides ANSI coloring per config.Options.Color: "always"
// forces it on, "never" forces it off, anything else (including the
// default "auto") TTY-detects stdout via mattn/go-isatty, matching the
// teacher's own color-detection idiom.
func NewPrinter(opts config.Options) *Printer {
	color := false
	switch opts.Color {
	case "always":
		color = true
	case "never":
		color = false
	default:
		color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
	return &Printer{color: color, lines: make(map[string][]string)}
}

// Render formats one warning as a multi-line report: the location and
// message, then the offending source line with an underline beneath
// the reported byte range.
func (p *Printer) Render(w Warning) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: [%s] %s\n", w.Pos, config.RuleName, w.Message)

	line, ok := p.sourceLine(w.Pos.File, w.Pos.Line)
	if !ok {
		return sb.String()
	}
	sb.WriteString("  ")
	sb.WriteString(line)
	sb.WriteString("\n  ")
	sb.WriteString(p.underline(line, w.Pos.Col, w.Pos.Len()))
	sb.WriteString("\n")
	return sb.String()
}

func (p *Printer) underline(line string, col, length int) string {
	if length <= 0 {
		length = 1
	}
	pad := col - 1
	if pad < 0 {
		pad = 0
	}
	if pad > len(line) {
		pad = len(line)
	}
	max := len(line) - pad
	if length > max {
		length = max
	}
	if length < 1 {
		length = 1
	}
	carets := strings.Repeat("^", length)
	if !p.color {
		return strings.Repeat(" ", pad) + carets
	}
	return strings.Repeat(" ", pad) + ansiBold + ansiRed + carets + ansiReset
}

func (p *Printer) sourceLine(file string, lineNo int) (string, bool) {
	if lineNo < 1 {
		return "", false
	}
	lines, ok := p.lines[file]
	if !ok {
		lines = readLines(file)
		p.lines[file] = lines
	}
	if lineNo > len(lines) {
		return "", false
	}
	return lines[lineNo-1], true
}

func readLines(file string) []string {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}
