package doctree

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DumpMode selects how resolved references are serialized.
type DumpMode int

const (
	// DumpPointers writes every pointer-form reference as {"$ref": ...}.
	DumpPointers DumpMode = iota
	// DumpInline replaces resolved references by their target content.
	// Pending references stay pointers.
	DumpInline
)

// Dump serializes v as JSON.
func Dump(v any, mode DumpMode) ([]byte, error) {
	if mode == DumpPointers {
		return json.Marshal(v)
	}
	tree, err := Inline(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// DumpIndent is Dump with indented output.
func DumpIndent(v any, mode DumpMode, indent string) ([]byte, error) {
	if mode == DumpPointers {
		return json.MarshalIndent(v, "", indent)
	}
	tree, err := Inline(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(tree, "", indent)
}

// Inline converts v to a generic JSON tree with resolved references
// expanded, honouring json struct tags the way encoding/json does.
func Inline(v any) (any, error) {
	return inlineValue(reflect.ValueOf(v), 0)
}

const maxInlineDepth = 1000

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func inlineValue(v reflect.Value, depth int) (any, error) {
	if depth > maxInlineDepth {
		return nil, fmt.Errorf("doctree: inline dump exceeds depth %d", maxInlineDepth)
	}
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() == reflect.Struct && !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	if v.CanAddr() {
		if r, ok := v.Addr().Interface().(reference); ok {
			return inlineRef(r, depth)
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return inlineValue(v.Elem(), depth+1)
	}

	if v.Type().Implements(jsonMarshalerType) {
		return marshalRaw(v)
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(jsonMarshalerType) {
		return marshalRaw(v.Addr())
	}
	if v.Type().Implements(textMarshalerType) {
		return marshalRaw(v)
	}

	switch v.Kind() {
	case reflect.Struct:
		return inlineStruct(v, depth)
	case reflect.Map:
		return inlineMap(v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return marshalRaw(v)
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			item, err := inlineValue(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("doctree: cannot dump %s", v.Type())
	}
	return v.Interface(), nil
}

func inlineRef(r reference, depth int) (any, error) {
	switch r.refKind() {
	case kindInline, kindResolved:
		return inlineValue(r.refValue(), depth+1)
	case kindPointer:
		return map[string]any{RefKey: string(r.refPointer())}, nil
	default:
		return nil, nil
	}
}

func inlineStruct(v reflect.Value, depth int) (any, error) {
	out := make(map[string]any)
	if err := inlineFields(v, depth, out); err != nil {
		return nil, err
	}
	return out, nil
}

func inlineFields(v reflect.Value, depth int, out map[string]any) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == metaType {
			continue
		}
		if !sf.IsExported() {
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Tag.Get("json") == "" {
				if err := inlineFields(v.Field(i), depth+1, out); err != nil {
					return err
				}
			}
			continue
		}
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)
		if name == "" && sf.Anonymous {
			ev := fv
			if ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					continue
				}
				ev = ev.Elem()
			}
			if ev.Kind() == reflect.Struct && !isMarshaler(ev) {
				if err := inlineFields(ev, depth+1, out); err != nil {
					return err
				}
				continue
			}
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		item, err := inlineValue(fv, depth+1)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out[name] = item
	}
	return nil
}

func inlineMap(v reflect.Value, depth int) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		item, err := inlineValue(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = item
	}
	return out, nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("doctree: unsupported map key type %s", k.Type())
}

func marshalRaw(v reflect.Value) (any, error) {
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func isMarshaler(v reflect.Value) bool {
	return v.Type().Implements(jsonMarshalerType) ||
		reflect.PointerTo(v.Type()).Implements(jsonMarshalerType)
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == name {
			return true
		}
	}
	return false
}

// isEmptyValue mirrors the omitempty rule of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
