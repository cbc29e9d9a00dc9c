package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

type refKind int

const (
	kindZero refKind = iota
	kindInline
	kindPointer
	kindResolved
)

// reference is the type-erased view of Ref[T] used by the walker.
type reference interface {
	refKind() refKind
	refPointer() Pointer
	refValue() reflect.Value
	refTarget() *Context
	resolveIn(w *walk, ctx *Context, field string, mode Mode) error
}

// Ref is a field that holds either an inline T or a pointer to a file
// that decodes into T. After resolution it keeps the pointer and gains
// the shared *T of the target, so it still serializes as a pointer.
//
// In JSON an object whose only key is "$ref" is a pointer; everything
// else, including null, decodes as an inline T.
type Ref[T any] struct {
	kind   refKind
	ptr    Pointer
	val    *T
	target *Context
}

// RefTo returns a pending reference to p.
func RefTo[T any](p Pointer) Ref[T] {
	return Ref[T]{kind: kindPointer, ptr: p}
}

// InlineRef returns a reference holding v directly.
func InlineRef[T any](v *T) Ref[T] {
	if v == nil {
		return Ref[T]{}
	}
	return Ref[T]{kind: kindInline, val: v}
}

// IsZero reports whether the reference holds nothing.
func (r Ref[T]) IsZero() bool { return r.kind == kindZero }

// IsInline reports whether the value was written inline.
func (r Ref[T]) IsInline() bool { return r.kind == kindInline }

// IsPending reports whether the reference is a pointer not yet resolved.
func (r Ref[T]) IsPending() bool { return r.kind == kindPointer }

// IsResolved reports whether the reference is a pointer with its target loaded.
func (r Ref[T]) IsResolved() bool { return r.kind == kindResolved }

// Pointer returns the pointer of a pending or resolved reference.
func (r Ref[T]) Pointer() (Pointer, bool) {
	if r.kind == kindPointer || r.kind == kindResolved {
		return r.ptr, true
	}
	return "", false
}

// Value returns the inline or resolved value, nil while pending.
func (r Ref[T]) Value() *T { return r.val }

// Target returns the context of the resolved target, nil otherwise.
func (r Ref[T]) Target() *Context { return r.target }

// Resolve resolves a pending reference written in the document at ctx
// and returns its value. Inline and resolved references return as is.
func (r *Ref[T]) Resolve(ctx *Context, mode Mode) (*T, error) {
	if r.kind != kindPointer {
		return r.val, nil
	}
	if ctx == nil {
		return nil, ErrNoContext
	}
	w, done := ctx.tree.startWalk()
	defer done()
	if err := r.resolveIn(w, ctx, "", mode); err != nil {
		return nil, err
	}
	return r.val, nil
}

// ResolveRef resolves r, written in the document at ctx, in place.
func ResolveRef[T any](ctx *Context, r *Ref[T], mode Mode) (*T, error) {
	return r.Resolve(ctx, mode)
}

func (r *Ref[T]) refKind() refKind    { return r.kind }
func (r *Ref[T]) refPointer() Pointer { return r.ptr }
func (r *Ref[T]) refTarget() *Context { return r.target }

func (r *Ref[T]) refValue() reflect.Value {
	if r.val == nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(r.val)
}

func (r *Ref[T]) resolveIn(w *walk, ctx *Context, field string, mode Mode) error {
	if r.kind != kindPointer {
		return nil
	}
	if ctx == nil {
		return ErrNoContext
	}
	v, target, err := resolvePointer[T](w, ctx, field, r.ptr, mode)
	if err != nil {
		return err
	}
	r.kind = kindResolved
	r.val = v
	r.target = target
	return nil
}

// UnmarshalJSON discriminates a pointer literal from inline content.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}
	ptr, ok, err := pointerLiteral(data)
	if err != nil {
		return err
	}
	if ok {
		*r = Ref[T]{kind: kindPointer, ptr: ptr}
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	*r = Ref[T]{kind: kindInline, val: v}
	return nil
}

// MarshalJSON writes pointers back as {"$ref": ...} and inline values as
// themselves. Use Dump with DumpInline to expand resolved pointers.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case kindPointer, kindResolved:
		return json.Marshal(map[string]string{RefKey: string(r.ptr)})
	case kindInline:
		return json.Marshal(r.val)
	default:
		return []byte("null"), nil
	}
}

func (r Ref[T]) String() string {
	switch r.kind {
	case kindPointer:
		return fmt.Sprintf("Ref(%s, pending)", r.ptr)
	case kindResolved:
		return fmt.Sprintf("Ref(%s, resolved)", r.ptr)
	case kindInline:
		return "Ref(inline)"
	default:
		return "Ref(nil)"
	}
}

// pointerLiteral reports whether data is exactly {"$ref": "<path>"}.
func pointerLiteral(data []byte) (Pointer, bool, error) {
	if len(data) == 0 || data[0] != '{' {
		return "", false, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", false, nil
	}
	raw, ok := obj[RefKey]
	if !ok || len(obj) != 1 {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, &InvalidReferenceError{Pointer: string(raw), Reason: "pointer must be a string"}
	}
	p, err := ParsePointer(s)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}
