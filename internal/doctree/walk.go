package doctree

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var errSkip = errors.New("doctree: skip subtree")

var (
	referenceType = reflect.TypeFor[reference]()
	documentType  = reflect.TypeFor[Document]()
	assetType     = reflect.TypeFor[Asset]()
	metaType      = reflect.TypeFor[Meta]()
)

// visitor drives one traversal over decoded values. Nil callbacks are
// skipped. commit writes a value that lives in a map back into its
// entry; it must be called after mutating a reference outside the walk.
type visitor struct {
	enterDocument func(ctx *Context, field string, doc Document) error
	leaveDocument func(ctx *Context, field string, doc Document) error
	asset         func(ctx *Context, field string, a *Asset) error
	ref           func(ctx *Context, field string, r reference, commit func()) error

	// followResolved descends into resolved targets, each once.
	followResolved bool
	seen           map[any]struct{}

	// pointerMaps rejects maps whose elements hold a document or an asset
	// inline. Those elements are copies, so a registered pointer would not
	// reach the value stored in the map.
	pointerMaps bool
}

func walkRoot(ctx *Context, root any, vis *visitor) error {
	return vis.walk(ctx, "", reflect.ValueOf(root), func() {})
}

func (vis *visitor) walk(ctx *Context, field string, v reflect.Value, commit func()) error {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return vis.walk(ctx, field, v.Elem(), commit)
	case reflect.Struct:
		return vis.walkStruct(ctx, field, v, commit)
	case reflect.Slice, reflect.Array:
		if !needsWalk(v.Type().Elem()) {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := vis.walk(ctx, fmt.Sprintf("%s[%d]", field, i), v.Index(i), commit); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.IsNil() || !needsWalk(v.Type().Elem()) {
			return nil
		}
		return vis.walkMap(ctx, field, v, commit)
	}
	return nil
}

func (vis *visitor) walkMap(ctx *Context, field string, m reflect.Value, commit func()) error {
	keys := m.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	elem := m.Type().Elem()
	if vis.pointerMaps && holdsNode(elem) {
		return fmt.Errorf("doctree: /%s %s: %w; use map values of type *%s",
			ctx.path, field, ErrMapValue, elem)
	}
	for _, k := range keys {
		entry := reflect.New(elem).Elem()
		entry.Set(m.MapIndex(k))
		entryCommit := func() {
			m.SetMapIndex(k, entry)
			commit()
		}
		if err := vis.walk(ctx, joinField(field, fmt.Sprint(k.Interface())), entry, entryCommit); err != nil {
			return err
		}
		m.SetMapIndex(k, entry)
	}
	return nil
}

func (vis *visitor) walkStruct(ctx *Context, field string, v reflect.Value, commit func()) error {
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	switch x := v.Addr().Interface().(type) {
	case reference:
		return vis.visitRef(ctx, field, x, commit)
	case *Asset:
		if vis.asset != nil {
			return vis.asset(ctx, field, x)
		}
		return nil
	case Document:
		return vis.visitDocument(ctx, field, v, x, commit)
	}
	return vis.walkFields(ctx, field, v, commit)
}

func (vis *visitor) visitRef(ctx *Context, field string, r reference, commit func()) error {
	if vis.ref != nil {
		if err := vis.ref(ctx, field, r, commit); err != nil {
			return err
		}
	}
	switch r.refKind() {
	case kindInline:
		return vis.walk(ctx, field, r.refValue(), commit)
	case kindResolved:
		if !vis.followResolved {
			return nil
		}
		val := r.refValue()
		if vis.seen != nil {
			key := val.Interface()
			if _, ok := vis.seen[key]; ok {
				return nil
			}
			vis.seen[key] = struct{}{}
		}
		return vis.walk(r.refTarget(), field, val, commit)
	}
	return nil
}

func (vis *visitor) visitDocument(ctx *Context, field string, v reflect.Value, doc Document, commit func()) error {
	if vis.enterDocument != nil {
		if err := vis.enterDocument(ctx, field, doc); err != nil {
			if errors.Is(err, errSkip) {
				return nil
			}
			return err
		}
	}
	if dc := doc.DocContext(); dc != nil {
		ctx = dc
	}
	if err := vis.walkFields(ctx, field, v, commit); err != nil {
		return err
	}
	if vis.leaveDocument != nil {
		return vis.leaveDocument(ctx, field, doc)
	}
	return nil
}

func (vis *visitor) walkFields(ctx *Context, field string, v reflect.Value, commit func()) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == metaType || !needsWalk(sf.Type) {
			continue
		}
		if !sf.IsExported() {
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				if err := vis.walkFields(ctx, field, v.Field(i), commit); err != nil {
					return err
				}
			}
			continue
		}
		name, ok := jsonName(sf)
		if !ok {
			continue
		}
		child := field
		if name != "" {
			child = joinField(field, name)
		}
		if err := vis.walk(ctx, child, v.Field(i), commit); err != nil {
			return err
		}
	}
	return nil
}

// jsonName returns the serialized field name, "" for an untagged embedded
// struct whose fields are promoted, and false for fields json ignores.
func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name != "" {
		return name, true
	}
	if sf.Anonymous {
		t := sf.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			return "", true
		}
	}
	return sf.Name, true
}

func joinField(parent, name string) string {
	if name == "" {
		return parent
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// holdsNode reports whether t stores a document or an asset without a
// pointer in between.
func holdsNode(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return holdsNode(t.Elem())
	case reflect.Struct:
		pt := reflect.PointerTo(t)
		if t == assetType || pt.Implements(documentType) {
			return true
		}
		if pt.Implements(referenceType) {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.IsExported() || sf.Anonymous {
				if holdsNode(sf.Type) {
					return true
				}
			}
		}
	}
	return false
}

var walkable sync.Map // reflect.Type -> bool

// needsWalk reports whether values of t can hold a reference, an asset or
// a document.
func needsWalk(t reflect.Type) bool {
	if v, ok := walkable.Load(t); ok {
		return v.(bool)
	}
	return needsWalkRec(t, make(map[reflect.Type]bool))
}

func needsWalkRec(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if v, ok := walkable.Load(t); ok {
		return v.(bool)
	}
	if visiting[t] {
		return false
	}
	visiting[t] = true

	var out bool
	switch t.Kind() {
	case reflect.Interface:
		out = true
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		out = needsWalkRec(t.Elem(), visiting)
	case reflect.Struct:
		pt := reflect.PointerTo(t)
		if t == assetType || pt.Implements(referenceType) || pt.Implements(documentType) {
			out = true
			break
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			promoted := sf.Anonymous && sf.Type.Kind() == reflect.Struct
			if (sf.IsExported() || promoted) && needsWalkRec(sf.Type, visiting) {
				out = true
				break
			}
		}
	}
	delete(visiting, t)
	if len(visiting) == 0 || out {
		walkable.Store(t, out)
	}
	return out
}
