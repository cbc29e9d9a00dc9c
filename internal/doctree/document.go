package doctree

// Document is implemented by every struct that embeds Meta. The context
// is attached exactly once, during decoding.
type Document interface {
	DocContext() *Context
	attachContext(ctx *Context) error
}

// Meta carries the document context. Embed it by value:
//
//	type Family struct {
//		doctree.Meta
//		Slug string `json:"slug"`
//	}
//
// Meta is never serialized.
type Meta struct {
	ctx *Context
}

// DocContext returns the context attached when the document was decoded,
// or nil for documents built in memory.
func (m *Meta) DocContext() *Context { return m.ctx }

func (m *Meta) attachContext(ctx *Context) error {
	if m.ctx != nil {
		return ErrContextAttached
	}
	m.ctx = ctx
	return nil
}

// PendingRef is a pointer that has not been resolved yet.
type PendingRef struct {
	// Field is the dotted path of the reference inside the walked value.
	Field   string
	Pointer Pointer
	// Context is the context the pointer is interpreted in.
	Context *Context

	ref    reference
	commit func()
}

// Resolve resolves the reference in place.
func (p PendingRef) Resolve(mode Mode) error {
	if p.Context == nil {
		return ErrNoContext
	}
	w, done := p.Context.tree.startWalk()
	defer done()
	if err := p.ref.resolveIn(w, p.Context, p.Field, mode); err != nil {
		return err
	}
	p.commit()
	return nil
}

// PendingRefs lists the unresolved references reachable from doc,
// including those inside already resolved targets.
func PendingRefs(doc Document) []PendingRef {
	ctx := doc.DocContext()
	if ctx == nil {
		return nil
	}
	var out []PendingRef
	v := &visitor{
		followResolved: true,
		seen:           make(map[any]struct{}),
		ref: func(ctx *Context, field string, r reference, commit func()) error {
			if r.refKind() == kindPointer {
				out = append(out, PendingRef{
					Field:   field,
					Pointer: r.refPointer(),
					Context: ctx,
					ref:     r,
					commit:  commit,
				})
			}
			return nil
		},
	}
	_ = walkRoot(ctx, doc, v)
	return out
}

// ResolveRefs resolves every pending reference reachable from doc, deeply.
func ResolveRefs(doc Document) error {
	ctx := doc.DocContext()
	if ctx == nil {
		return ErrNoContext
	}
	w, done := ctx.tree.startWalk()
	defer done()
	return ctx.tree.resolveAll(w, ctx, doc)
}

// Edge is one reference written in a document file.
type Edge struct {
	Source  string
	Field   string
	Pointer Pointer
	// Target is the resolved tree path, empty when the pointer is invalid.
	Target string
}

// Edges lists the references written directly in doc, including inside
// inline values, without crossing into referenced or nested documents.
func Edges(doc Document) []Edge {
	ctx := doc.DocContext()
	if ctx == nil {
		return nil
	}
	var out []Edge
	v := &visitor{
		enterDocument: func(_ *Context, field string, d Document) error {
			if field != "" {
				return errSkip
			}
			return nil
		},
		ref: func(ctx *Context, field string, r reference, _ func()) error {
			if r.refKind() == kindZero || r.refKind() == kindInline {
				return nil
			}
			e := Edge{Source: ctx.path, Field: field, Pointer: r.refPointer()}
			if target, err := ResolvePath(ctx.path, string(e.Pointer)); err == nil {
				e.Target = target
			}
			out = append(out, e)
			return nil
		},
	}
	_ = walkRoot(ctx, doc, v)
	return out
}
