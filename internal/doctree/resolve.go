package doctree

import (
	"errors"
	"log/slog"
	"reflect"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// resolvePointer turns ptr, written in the document at ctx, into the
// shared *T for its target. Cache hits return the cached instance.
func resolvePointer[T any](w *walk, ctx *Context, field string, ptr Pointer, mode Mode) (*T, *Context, error) {
	t := ctx.tree
	typ := reflect.TypeFor[T]()

	target, err := ctx.Reference(string(ptr))
	if err != nil {
		t.obs.ResolveFailed(typ, err)
		return nil, nil, err
	}
	osPath := target.OSPath()

	if cached, ok := t.CacheGet(osPath, typ); ok {
		t.obs.CacheHit(typ)
		v := cached.(*T)
		if mode == Deep {
			if err := t.resolveAll(w, target, v); err != nil {
				return nil, nil, err
			}
		}
		return v, target, nil
	}
	t.obs.CacheMiss(typ)

	key := cacheKey{osPath, typ}
	if err := w.begin(key, target.path); err != nil {
		t.obs.ResolveFailed(typ, err)
		return nil, nil, err
	}
	defer w.end()

	if typ.Kind() == reflect.Interface {
		t.logger.Warn("doctree: untyped reference",
			slog.Any("error", &AmbiguousResolveTypeError{Referrer: ctx.path, Target: target.path, Field: field}))
	}

	v, err := t.construct(w, ctx.path, target, typ, reflect.New(typ), mode)
	if err != nil {
		t.obs.ResolveFailed(typ, err)
		return nil, nil, err
	}
	if err := t.CacheUpdate(osPath, typ, v.Interface()); err != nil {
		return nil, nil, err
	}
	t.logger.Debug("doctree: resolved",
		slog.String("referrer", "/"+ctx.path),
		slog.String("target", "/"+target.path),
		slog.String("type", typ.String()))
	return v.Interface().(*T), target, nil
}

// construct reads the target file, decodes it into dst and attaches the
// decoded value to the tree.
func (t *Doctree) construct(w *walk, referrer string, target *Context, typ reflect.Type, dst reflect.Value, mode Mode) (reflect.Value, error) {
	data, err := t.read(referrer, target.path)
	if err != nil {
		return reflect.Value{}, err
	}
	if field, err := decodeContent(target.path, data, dst.Interface()); err != nil {
		var ire *InvalidReferenceError
		if errors.As(err, &ire) {
			if ire.Referrer == "" {
				ire.Referrer = target.path
			}
			return reflect.Value{}, err
		}
		return reflect.Value{}, &ValidationError{
			Referrer: referrer,
			Target:   target.path,
			Type:     typ,
			Field:    field,
			Err:      err,
		}
	}
	if err := t.attach(w, target, dst, mode); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Referrer == "" {
			ve.Referrer = referrer
		}
		return reflect.Value{}, err
	}
	return dst, nil
}

// attach gives every document decoded from the file at ctx its context,
// registers documents and assets, validates documents and, with Deep,
// resolves the pending references it passes.
func (t *Doctree) attach(w *walk, ctx *Context, root reflect.Value, mode Mode) error {
	vis := &visitor{
		pointerMaps: true,
		enterDocument: func(ctx *Context, _ string, doc Document) error {
			if err := doc.attachContext(ctx); err != nil {
				return err
			}
			t.register(reflect.TypeOf(doc).Elem(), doc)
			return nil
		},
		leaveDocument: func(ctx *Context, field string, doc Document) error {
			return validate(ctx, field, doc)
		},
		asset: func(ctx *Context, _ string, a *Asset) error {
			if err := a.attach(ctx); err != nil {
				return err
			}
			t.register(assetType, a)
			return nil
		},
		ref: func(ctx *Context, field string, r reference, _ func()) error {
			if mode == Deep && r.refKind() == kindPointer {
				return r.resolveIn(w, ctx, field, Deep)
			}
			return nil
		},
	}
	if err := vis.walk(ctx, "", root, func() {}); err != nil {
		return err
	}
	if _, isDoc := root.Interface().(Document); !isDoc {
		return validate(ctx, "", root.Interface())
	}
	return nil
}

// resolveAll resolves, deeply, every pending reference reachable from v.
func (t *Doctree) resolveAll(w *walk, ctx *Context, v any) error {
	vis := &visitor{
		followResolved: true,
		seen:           make(map[any]struct{}),
		ref: func(ctx *Context, field string, r reference, commit func()) error {
			if r.refKind() != kindPointer {
				return nil
			}
			if err := r.resolveIn(w, ctx, field, Deep); err != nil {
				return err
			}
			commit()
			return nil
		},
	}
	return walkRoot(ctx, v, vis)
}

func validate(ctx *Context, field string, v any) error {
	vv, ok := v.(validation.Validatable)
	if !ok {
		return nil
	}
	err := vv.Validate()
	if err == nil {
		return nil
	}
	return &ValidationError{
		Target: ctx.path,
		Type:   reflect.TypeOf(v).Elem(),
		Field:  joinField(field, failedField(err)),
		Err:    err,
	}
}

// failedField extracts the field name from a single-field ozzo error.
func failedField(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) != 1 {
		return ""
	}
	for k, inner := range errs {
		return joinField(k, failedField(inner))
	}
	return ""
}
