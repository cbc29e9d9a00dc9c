package schemas

import (
	"reflect"

	"github.com/starford/reftree/internal/doctree"
)

// Loader loads the document at treePath as one concrete type.
type Loader func(tree *doctree.Doctree, treePath string, mode doctree.Mode) (any, error)

func loaderFor[T any]() Loader {
	return func(tree *doctree.Doctree, treePath string, mode doctree.Mode) (any, error) {
		return doctree.LoadPath[T](tree, treePath, mode)
	}
}

// TypeName is the name documents of type T are indexed under.
func TypeName[T any]() string { return reflect.TypeFor[T]().String() }

var loaders = map[string]Loader{
	TypeName[Family]():     loaderFor[Family](),
	TypeName[FamilyMeta](): loaderFor[FamilyMeta](),
	TypeName[Class]():      loaderFor[Class](),
	TypeName[Collection](): loaderFor[Collection](),
	TypeName[Feature]():    loaderFor[Feature](),
	TypeName[Dataset]():    loaderFor[Dataset](),
}

// Load loads the document at treePath as the named type. Unknown names,
// including text files, load untyped.
func Load(tree *doctree.Doctree, typeName, treePath string, mode doctree.Mode) (any, error) {
	if l, ok := loaders[typeName]; ok {
		return l(tree, treePath, mode)
	}
	return doctree.LoadPath[any](tree, treePath, mode)
}

// LoadFamily is the root loader for dataset.json files.
func LoadFamily(tree *doctree.Doctree, treePath string) error {
	_, err := doctree.LoadPath[Family](tree, treePath, doctree.Deep)
	return err
}
