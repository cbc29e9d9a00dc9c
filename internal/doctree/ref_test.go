package doctree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalDiscriminates(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPointer Pointer
		wantInline  bool
		wantZero    bool
	}{
		{"pointer", `{"$ref": "a/b.json"}`, "a/b.json", false, false},
		{"pointer with spaces", ` { "$ref" : "/x.json" } `, "/x.json", false, false},
		{"extra keys are inline", `{"$ref": "a.json", "k": 1}`, "", true, false},
		{"plain object", `{"k": "v"}`, "", true, false},
		{"empty object", `{}`, "", true, false},
		{"string", `"text"`, "", true, false},
		{"null", `null`, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref[any]
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Equal(t, tt.wantInline, r.IsInline())
			assert.Equal(t, tt.wantZero, r.IsZero())
			p, ok := r.Pointer()
			assert.Equal(t, tt.wantPointer != "", ok)
			assert.Equal(t, tt.wantPointer, p)
		})
	}
}

func TestRef_UnmarshalRejectsBadPointer(t *testing.T) {
	for _, input := range []string{`{"$ref": 1}`, `{"$ref": ""}`, `{"$ref": "http://x/y"}`} {
		var r Ref[userList]
		err := json.Unmarshal([]byte(input), &r)
		assert.ErrorIs(t, err, ErrInvalidReference, input)
	}
}

func TestRef_InlineTypeMismatch(t *testing.T) {
	var r Ref[userList]
	err := json.Unmarshal([]byte(`{"users": "nope"}`), &r)
	assert.Error(t, err)
}

func TestRef_MarshalUnresolved(t *testing.T) {
	m := referencedModel{
		Name:     "test",
		UserList: RefTo[userList]("/a/b/c"),
		Info:     RefTo[map[string]any]("x"),
	}
	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "test", "user_list": {"$ref": "/a/b/c"}, "meta": {"$ref": "x"}}`, string(got))

	inl, err := Dump(&m, DumpInline)
	require.NoError(t, err)
	assert.JSONEq(t, string(got), string(inl))
}

func TestRef_MarshalInline(t *testing.T) {
	m := referencedModel{
		Name:     "test",
		UserList: InlineRef(&userList{Users: []string{"A"}}),
	}
	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "test", "user_list": {"users": ["A"]}, "meta": null}`, string(got))
}

func TestRef_ResolveWithoutContext(t *testing.T) {
	r := RefTo[userList]("a.json")
	_, err := ResolveRef(nil, &r, Shallow)
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestRef_ResolveInlineIsNoop(t *testing.T) {
	v := &userList{Users: []string{"A"}}
	r := InlineRef(v)
	got, err := r.Resolve(nil, Deep)
	require.NoError(t, err)
	assert.Same(t, v, got)
}

func TestRef_String(t *testing.T) {
	assert.Equal(t, "Ref(a.json, pending)", RefTo[userList]("a.json").String())
	assert.Equal(t, "Ref(nil)", Ref[userList]{}.String())
}
