package doctree

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeContent decodes data into dst (a non-nil pointer) according to
// the extension of treePath: JSON, YAML, or plain text for anything else.
// On failure it returns the offending field path when the decoder knows it.
func decodeContent(treePath string, data []byte, dst any) (string, error) {
	switch strings.ToLower(path.Ext(treePath)) {
	case ".json":
		return decodeJSON(data, dst)
	case ".yaml", ".yml":
		return decodeYAML(data, dst)
	default:
		return "", decodeText(data, dst)
	}
}

func decodeJSON(data []byte, dst any) (string, error) {
	err := json.Unmarshal(data, dst)
	if err == nil {
		return "", nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return ute.Field, err
	}
	return "", err
}

// decodeYAML converts YAML to its JSON equivalent first so json tags and
// the reference discriminator apply unchanged.
func decodeYAML(data []byte, dst any) (string, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", err
	}
	norm, err := jsonCompatible(tree)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}
	return decodeJSON(buf, dst)
}

func jsonCompatible(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			n, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			n, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// decodeText stores raw file content. The target must be a string kind,
// an interface or implement encoding.TextUnmarshaler.
func decodeText(data []byte, dst any) error {
	if tu, ok := dst.(encoding.TextUnmarshaler); ok {
		return tu.UnmarshalText(data)
	}
	v := reflect.ValueOf(dst).Elem()
	switch {
	case v.Kind() == reflect.String:
		v.SetString(string(data))
		return nil
	case v.Kind() == reflect.Interface && v.NumMethod() == 0:
		v.Set(reflect.ValueOf(string(data)))
		return nil
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		v.SetBytes(append([]byte(nil), data...))
		return nil
	}
	return fmt.Errorf("text content cannot be decoded into %s", v.Type())
}
