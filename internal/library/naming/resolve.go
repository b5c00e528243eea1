// Package naming derives unique sibling names for folders and files.
package naming

import (
	"strconv"
	"strings"
)

// Set builds a lookup set from a list of names.
func Set(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Resolve returns desired when it is not taken. Otherwise it appends
// " (n)" to the part before the last dot, keeping the extension, and
// returns the first candidate with the smallest n >= 1 that is free.
//
// Names are matched literally: "report (2).pdf" colliding becomes
// "report (2) (1).pdf", and "archive.tar.gz" numbers as "archive.tar (1).gz".
func Resolve(desired string, taken map[string]struct{}) string {
	if _, ok := taken[desired]; !ok {
		return desired
	}

	stem, ext := SplitExt(desired)
	for n := 1; ; n++ {
		candidate := stem + " (" + strconv.Itoa(n) + ")" + ext
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// SplitExt splits name at its last dot. The extension keeps the dot and is
// empty when name has no dot. A trailing dot is dropped with an empty
// extension.
func SplitExt(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	switch {
	case idx < 0:
		return name, ""
	case idx == len(name)-1:
		return name[:idx], ""
	default:
		return name[:idx], name[idx:]
	}
}
