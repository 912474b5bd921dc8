// Package config holds the analyzer's recognized options and the
// file-extension/name conventions it uses to locate compilation units
// and its own project file.
package config

// Version is the current deadvalue analyzer version.
var Version = "0.1.0"

// ArtifactExt is the extension of a decoded compilation-unit artifact
// this analyzer consumes (see SPEC_FULL.md: the real host-compiler
// format is out of scope, so this repository defines its own).
const ArtifactExt = ".cmt.json"

// ProjectFile is the name of the optional per-project configuration
// file, parsed with gopkg.in/yaml.v3.
const ProjectFile = ".deadvalue.yaml"

// RuleName is the diagnostic rule name emitted with every warning,
// per spec.md §6.
const RuleName = "Dead Value"

// CacheDirName is the default subdirectory (under the project root)
// used by internal/cache to store the artifact cache database.
const CacheDirName = ".deadvalue/cache"

// BackupDirName is where --write stores pre-annotation backups.
const BackupDirName = ".deadvalue/backups"
