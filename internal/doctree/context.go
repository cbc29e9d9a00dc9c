package doctree

import (
	"log/slog"
	"path"
)

// Context locates one document inside a Doctree. Every document
// constructed from a file carries the context of that file; documents
// decoded inline share their parent's context.
type Context struct {
	tree *Doctree
	path string
}

// Doctree returns the tree the context belongs to.
func (c *Context) Doctree() *Doctree { return c.tree }

// Path returns the tree path, without a leading separator.
func (c *Context) Path() string { return c.path }

// Dir returns the tree directory that relative pointers are resolved against.
func (c *Context) Dir() string { return path.Dir(c.path) }

// OSPath returns the physical location of the document.
func (c *Context) OSPath() string { return c.tree.OSPath(c.path) }

// Reference derives the context of the document that pointer names.
func (c *Context) Reference(pointer string) (*Context, error) {
	target, err := ResolvePath(c.path, pointer)
	if err != nil {
		return nil, err
	}
	return &Context{tree: c.tree, path: target}, nil
}

// LogValue renders the context as its tree path.
func (c *Context) LogValue() slog.Value {
	if c == nil {
		return slog.StringValue("")
	}
	return slog.StringValue("/" + c.path)
}

func (c *Context) String() string { return "/" + c.path }
