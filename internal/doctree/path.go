package doctree

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Pointer is a reference path as written in a document. A leading "/"
// makes it tree-rooted; anything else is relative to the directory of
// the referencing document.
type Pointer string

// RefKey is the reserved key of a pointer literal: {"$ref": "<path>"}.
const RefKey = "$ref"

// ParsePointer validates raw pointer syntax.
func ParsePointer(s string) (Pointer, error) {
	switch {
	case strings.TrimSpace(s) == "":
		return "", &InvalidReferenceError{Pointer: s, Reason: "empty pointer"}
	case strings.ContainsRune(s, '\\'):
		return "", &InvalidReferenceError{Pointer: s, Reason: "backslash in pointer"}
	case strings.Contains(s, "://"):
		return "", &InvalidReferenceError{Pointer: s, Reason: "pointer must be a tree path, not a URL"}
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", &InvalidReferenceError{Pointer: s, Reason: "control character in pointer"}
		}
	}
	return Pointer(s), nil
}

// IsAbsolute reports whether p is tree-rooted.
func (p Pointer) IsAbsolute() bool { return strings.HasPrefix(string(p), "/") }

func (p Pointer) String() string { return string(p) }

// ResolvePath maps pointer, written in the document at tree path base,
// to a clean tree path without a leading separator. It never touches
// the filesystem.
func ResolvePath(base, pointer string) (string, error) {
	p, err := ParsePointer(pointer)
	if err != nil {
		var ire *InvalidReferenceError
		if errors.As(err, &ire) {
			ire.Referrer = base
		}
		return "", err
	}

	var joined string
	if p.IsAbsolute() {
		joined = path.Clean(strings.TrimLeft(string(p), "/"))
	} else {
		joined = path.Join(path.Dir(base), string(p))
	}
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", &OutsideTreeError{Root: "/", Path: joined, Referrer: base, Pointer: pointer}
	}
	if joined == "." || joined == "" {
		return "", &InvalidReferenceError{Referrer: base, Pointer: pointer, Reason: "pointer resolves to the tree root"}
	}
	return joined, nil
}

// treePathFromOS returns the slash-separated tree path of osPath, or an
// OutsideTreeError if it is not below root. Both must be absolute.
func treePathFromOS(root, osPath string) (string, error) {
	rel, err := filepath.Rel(root, osPath)
	if err != nil {
		return "", &OutsideTreeError{Root: root, Path: osPath}
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", &OutsideTreeError{Root: root, Path: osPath}
	}
	return rel, nil
}
