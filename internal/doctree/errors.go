package doctree

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinels matched by the concrete error types below via errors.Is.
var (
	ErrInvalidReference     = errors.New("invalid reference")
	ErrOutsideTree          = errors.New("path outside document tree")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateCacheKey    = errors.New("duplicate cache key")
	ErrAmbiguousResolveType = errors.New("ambiguous resolve type")
	ErrReferenceCycle       = errors.New("reference cycle")
	ErrContextAttached      = errors.New("document context already attached")
	ErrNoContext            = errors.New("document has no context")
	ErrRemoteAsset          = errors.New("asset is not local")
	ErrMapValue             = errors.New("map holds documents or assets by value")
)

// InvalidReferenceError reports a pointer that is not a usable path.
type InvalidReferenceError struct {
	Referrer string
	Pointer  string
	Reason   string
}

func (e *InvalidReferenceError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("doctree: invalid reference %q: %s", e.Pointer, e.Reason)
	}
	return fmt.Sprintf("doctree: invalid reference %q in %s: %s", e.Pointer, e.Referrer, e.Reason)
}

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// OutsideTreeError reports a path that escapes the tree root. Referrer
// and Pointer are set when the path came from a pointer in a document.
type OutsideTreeError struct {
	Root     string
	Path     string
	Referrer string
	Pointer  string
}

func (e *OutsideTreeError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("doctree: path %q is not inside tree root %q", e.Path, e.Root)
	}
	return fmt.Sprintf("doctree: pointer %q in /%s resolves to %q outside tree root %q",
		e.Pointer, e.Referrer, e.Path, e.Root)
}

func (e *OutsideTreeError) Is(target error) bool { return target == ErrOutsideTree }

// DocumentNotFoundError reports a reference whose target file does not exist.
type DocumentNotFoundError struct {
	Referrer string
	Target   string
	Err      error
}

func (e *DocumentNotFoundError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("doctree: document not found: /%s", e.Target)
	}
	return fmt.Sprintf("doctree: document not found: /%s (referenced from /%s)", e.Target, e.Referrer)
}

func (e *DocumentNotFoundError) Is(target error) bool { return target == ErrDocumentNotFound }

func (e *DocumentNotFoundError) Unwrap() error { return e.Err }

// ValidationError reports content that does not match the declared type.
// Field is a dotted path inside the target document when known.
type ValidationError struct {
	Referrer string
	Target   string
	Type     reflect.Type
	Field    string
	Err      error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "doctree: /%s is not a valid %s", e.Target, typeName(e.Type))
	if e.Field != "" {
		fmt.Fprintf(&b, " at %q", e.Field)
	}
	if e.Referrer != "" && e.Referrer != e.Target {
		fmt.Fprintf(&b, " (referenced from /%s)", e.Referrer)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// DuplicateCacheKeyError is an invariant violation: the same (path, type)
// pair was stored twice instead of being served from the cache.
type DuplicateCacheKeyError struct {
	OSPath string
	Type   reflect.Type
}

func (e *DuplicateCacheKeyError) Error() string {
	return fmt.Sprintf("doctree: duplicate cache key (%s, %s)", e.OSPath, typeName(e.Type))
}

func (e *DuplicateCacheKeyError) Is(target error) bool { return target == ErrDuplicateCacheKey }

// AmbiguousResolveTypeError is reported (not returned) when a reference
// field has no concrete target type and the content is used untyped.
type AmbiguousResolveTypeError struct {
	Referrer string
	Target   string
	Field    string
}

func (e *AmbiguousResolveTypeError) Error() string {
	return fmt.Sprintf("doctree: could not determine resolve type for %q in /%s (target /%s)",
		e.Field, e.Referrer, e.Target)
}

func (e *AmbiguousResolveTypeError) Is(target error) bool { return target == ErrAmbiguousResolveType }

// CycleError reports a reference chain that leads back to a document
// still being resolved.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "doctree: reference cycle: /" + strings.Join(e.Chain, " -> /")
}

func (e *CycleError) Is(target error) bool { return target == ErrReferenceCycle }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
