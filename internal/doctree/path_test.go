package doctree

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		pointer string
		want    string
		wantErr error
	}{
		{"relative sibling", "models/root_model.json", "meta.json", "models/meta.json", nil},
		{"relative subdir", "models/root_model.json", "text/about.txt", "models/text/about.txt", nil},
		{"relative parent", "models/root_model.json", "../users/userlist.json", "users/userlist.json", nil},
		{"absolute", "models/root_model.json", "/users/userlist.json", "users/userlist.json", nil},
		{"dot segments", "a/b.json", "./c/./d.json", "a/c/d.json", nil},
		{"top-level base", "b.json", "c.json", "c.json", nil},
		{"absolute cleaned", "a/b.json", "/x//y/../z.json", "x/z.json", nil},
		{"escapes root", "a/b.json", "../../x.json", "", ErrOutsideTree},
		{"absolute escapes root", "a/b.json", "/../x.json", "", ErrOutsideTree},
		{"tree root", "a/b.json", "..", "", ErrInvalidReference},
		{"empty", "a/b.json", "", "", ErrInvalidReference},
		{"url", "a/b.json", "https://example.com/x.json", "", ErrInvalidReference},
		{"backslash", "a/b.json", `c\d.json`, "", ErrInvalidReference},
		{"control char", "a/b.json", "c\x00.json", "", ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.base, tt.pointer)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath_InvalidCarriesReferrer(t *testing.T) {
	_, err := ResolvePath("a/b.json", "")
	var ire *InvalidReferenceError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, "a/b.json", ire.Referrer)
}

func TestResolvePath_OutsideCarriesReferrer(t *testing.T) {
	_, err := ResolvePath("a/b.json", "../../x.json")
	var ote *OutsideTreeError
	require.ErrorAs(t, err, &ote)
	assert.Equal(t, "a/b.json", ote.Referrer)
	assert.Equal(t, "../../x.json", ote.Pointer)
	assert.Equal(t, "../x.json", ote.Path)
	assert.Contains(t, ote.Error(), "/a/b.json")
}

func TestTreePathFromOS(t *testing.T) {
	root := filepath.FromSlash("/data/tree")

	got, err := treePathFromOS(root, filepath.Join(root, "models", "m.json"))
	require.NoError(t, err)
	assert.Equal(t, "models/m.json", got)

	_, err = treePathFromOS(root, filepath.FromSlash("/data/other/m.json"))
	assert.ErrorIs(t, err, ErrOutsideTree)

	_, err = treePathFromOS(root, root)
	assert.ErrorIs(t, err, ErrOutsideTree)
}
