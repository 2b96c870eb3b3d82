package sandbox

import "strings"

// SafeFilename reports whether name is safe to use as a bare filename
// inside a sandbox directory. Names containing a path separator or a
// ".." sequence are rejected; both input materialization and output
// collection use this same predicate.
func SafeFilename(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.Contains(name, "..")
}
