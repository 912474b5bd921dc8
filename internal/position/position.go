// Package position describes a source location, the thing every
// Label resolves back to (spec.md §3, "Label (L)").
package position

import "fmt"

// Position is a half-open byte range within one source file, the
// granularity spec.md's warnings are reported at ("start/end byte
// offsets", spec.md §6).
type Position struct {
	File      string
	Line      int // 1-based
	Col       int // 1-based, byte column
	Offset    int // byte offset of range start
	EndOffset int // byte offset one past range end
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Len reports the byte length of the range.
func (p Position) Len() int {
	if p.EndOffset < p.Offset {
		return 0
	}
	return p.EndOffset - p.Offset
}

// Valid reports whether p resolves to a real file.
func (p Position) Valid() bool {
	return p.File != ""
}
