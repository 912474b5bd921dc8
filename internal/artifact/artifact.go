// Package artifact loads compilation-unit typed-AST artifacts from
// disk. spec.md §6 explicitly puts the real host-compiler artifact
// format out of scope ("The artifact format itself is provided by
// the host compiler... is out of scope"); this package defines this
// repository's own JSON interchange encoding of cmt.Unit so the rest
// of the analyzer has something concrete to consume, and decodes it
// back into a fresh cmt.Unit with freshly allocated *ident.Ident
// values (identifier resolution, like typechecking, having already
// happened upstream of this boundary).
package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/diagnostics"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/position"
	"github.com/cmtlang/deadvalue/internal/utils"
)

// Load reads and decodes one compilation-unit artifact from path.
// Per spec.md §7, an unreadable artifact is fatal.
func Load(path string) (*cmt.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diagnostics.NewFatal("A000", position.Position{}, fmt.Sprintf("reading artifact %s: %v", path, err))
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode parses the JSON artifact format read from r. sourceFile
// becomes the File of every decoded position (the artifact format
// records no file name of its own) and of the returned unit, and
// supplies the module name when the artifact leaves it blank.
func Decode(r io.Reader, sourceFile string) (*cmt.Unit, error) {
	var raw rawUnit
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, diagnostics.NewFatal("A001", position.Position{}, fmt.Sprintf("decoding artifact: %v", err))
	}
	name := raw.Name
	if name == "" {
		// A host-produced artifact with no recorded module name (e.g.
		// a script file rather than a named module) falls back to
		// the name derived from its own path.
		name = utils.ExtractModuleName(sourceFile)
	}
	d := &decoder{
		module: name,
		idents: make(map[int]*ident.Ident),
		file:   sourceFile,
	}
	body, err := d.moduleStruct(raw.Body)
	if err != nil {
		return nil, err
	}
	return &cmt.Unit{
		Name:      name,
		File:      sourceFile,
		Body:      body,
		Signature: raw.Signature,
	}, nil
}

// Encode serializes a cmt.Unit back into this package's JSON
// interchange format — used by tests and by tooling that produces
// synthetic artifacts.
func Encode(w io.Writer, u *cmt.Unit) error {
	enc := &encoder{}
	raw := rawUnit{
		Name:      u.Name,
		Signature: u.Signature,
		Body:      enc.moduleStruct(u.Body),
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(raw)
}
