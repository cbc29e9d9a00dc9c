// Package doctree resolves trees of JSON/YAML/text documents that point at
// each other with {"$ref": "path"} literals.
//
// A Doctree owns the root directory, a resolution cache keyed by
// (physical path, target type) and a registry of every document and asset
// constructed while walking the tree. Documents are plain structs that
// embed Meta; reference fields are declared as Ref[T], where T is the
// explicit target type.
package doctree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/starford/reftree/internal/storage"
)

// Mode selects how far references are resolved at a call site.
type Mode int

const (
	// Shallow leaves nested pointers as pending Ref values.
	Shallow Mode = iota
	// Deep resolves every pending reference transitively before returning.
	Deep
)

func (m Mode) String() string {
	if m == Deep {
		return "deep"
	}
	return "shallow"
}

// Observer receives resolution events. Implementations must be cheap;
// they are called inline on the walk.
type Observer interface {
	DocumentLoaded(typ reflect.Type)
	CacheHit(typ reflect.Type)
	CacheMiss(typ reflect.Type)
	ResolveFailed(typ reflect.Type, err error)
}

type nopObserver struct{}

func (nopObserver) DocumentLoaded(reflect.Type)       {}
func (nopObserver) CacheHit(reflect.Type)             {}
func (nopObserver) CacheMiss(reflect.Type)            {}
func (nopObserver) ResolveFailed(reflect.Type, error) {}

type cacheKey struct {
	osPath string
	typ    reflect.Type
}

// Doctree is the root registry for a tree of documents. It is safe for
// concurrent use: Load and the Resolve entry points run one walk at a
// time, so a goroutine that loses the race for a key finds it cached.
// Validate hooks run inside a walk and must not call Resolve.
type Doctree struct {
	root   string
	store  storage.Provider
	logger *slog.Logger
	obs    Observer

	walkMu sync.Mutex

	mu       sync.Mutex
	cache    map[cacheKey]any
	registry map[reflect.Type][]any
	order    []reflect.Type
	all      []any
}

// walk is the state of one top-level resolution: the chain of files
// currently being decoded, outermost first.
type walk struct {
	chain []walkStep
}

type walkStep struct {
	key      cacheKey
	treePath string
}

// begin pushes key onto the chain. Re-entering a key that is still on
// the chain means the references loop.
func (w *walk) begin(key cacheKey, treePath string) error {
	for i, s := range w.chain {
		if s.key == key {
			chain := make([]string, 0, len(w.chain)-i+1)
			for _, f := range w.chain[i:] {
				chain = append(chain, f.treePath)
			}
			return &CycleError{Chain: append(chain, treePath)}
		}
	}
	w.chain = append(w.chain, walkStep{key: key, treePath: treePath})
	return nil
}

func (w *walk) end() { w.chain = w.chain[:len(w.chain)-1] }

// startWalk serializes top-level walks on t.
func (t *Doctree) startWalk() (*walk, func()) {
	t.walkMu.Lock()
	return &walk{}, t.walkMu.Unlock
}

// Option configures a Doctree.
type Option func(*Doctree)

// WithLogger sets the logger used for warnings and debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(t *Doctree) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithObserver sets the resolution event observer.
func WithObserver(o Observer) Option {
	return func(t *Doctree) {
		if o != nil {
			t.obs = o
		}
	}
}

// WithStorage reads documents through p instead of a new storage.FS.
// The tree root becomes p.Root().
func WithStorage(p storage.Provider) Option {
	return func(t *Doctree) {
		t.store = p
	}
}

// New creates a Doctree rooted at root, which must be an existing directory.
func New(root string, opts ...Option) (*Doctree, error) {
	t := &Doctree{
		logger:   slog.Default(),
		obs:      nopObserver{},
		cache:    make(map[cacheKey]any),
		registry: make(map[reflect.Type][]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store == nil {
		store, err := storage.NewFS(root)
		if err != nil {
			return nil, fmt.Errorf("doctree: %w", err)
		}
		t.store = store
	}
	t.root = t.store.Root()
	return t, nil
}

// Root returns the absolute tree root directory.
func (t *Doctree) Root() string { return t.root }

// Storage returns the provider documents are read through.
func (t *Doctree) Storage() storage.Provider { return t.store }

// OSPath maps a tree path to a filesystem path.
func (t *Doctree) OSPath(treePath string) string {
	return filepath.Join(t.root, filepath.FromSlash(treePath))
}

// ContextFor returns a context for the document at treePath.
func (t *Doctree) ContextFor(treePath string) *Context {
	return &Context{tree: t, path: treePath}
}

// ContextForOS returns a context for the document at osPath, which must
// be inside the root.
func (t *Doctree) ContextForOS(osPath string) (*Context, error) {
	treePath, err := treePathFromOS(t.root, canonical(osPath))
	if err != nil {
		return nil, err
	}
	return t.ContextFor(treePath), nil
}

// CacheGet returns the value resolved for (osPath, typ), if any.
func (t *Doctree) CacheGet(osPath string, typ reflect.Type) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache[cacheKey{osPath, typ}]
	return v, ok
}

// CacheUpdate stores the value resolved for (osPath, typ). Storing the
// same key twice is an invariant violation.
func (t *Doctree) CacheUpdate(osPath string, typ reflect.Type, v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := cacheKey{osPath, typ}
	if _, ok := t.cache[key]; ok {
		return &DuplicateCacheKeyError{OSPath: osPath, Type: typ}
	}
	t.cache[key] = v
	return nil
}

func (t *Doctree) register(typ reflect.Type, obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.registry[typ]; !ok {
		t.order = append(t.order, typ)
	}
	t.registry[typ] = append(t.registry[typ], obj)
	t.all = append(t.all, obj)
}

// All returns every registered document and asset in construction order.
// A file's top-level document always precedes the documents nested in it.
func (t *Doctree) All() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]any, len(t.all))
	copy(out, t.all)
	return out
}

// Types returns every registered type in first-seen order.
func (t *Doctree) Types() []reflect.Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]reflect.Type, len(t.order))
	copy(out, t.order)
	return out
}

// Instances returns every registered instance of typ in construction order.
// Instances are pointers to typ.
func (t *Doctree) Instances(typ reflect.Type) []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]any, len(t.registry[typ]))
	copy(out, t.registry[typ])
	return out
}

// Documents returns every registered document grouped by type.
func (t *Doctree) Documents() map[reflect.Type][]Document {
	out := make(map[reflect.Type][]Document)
	for _, typ := range t.Types() {
		for _, obj := range t.Instances(typ) {
			if doc, ok := obj.(Document); ok {
				out[typ] = append(out[typ], doc)
			}
		}
	}
	return out
}

// Objects returns every registered instance of T, e.g. Objects[Asset](t)
// after a full walk enumerates every asset used anywhere in the tree.
func Objects[T any](t *Doctree) []*T {
	objs := t.Instances(reflect.TypeFor[T]())
	out := make([]*T, 0, len(objs))
	for _, obj := range objs {
		out = append(out, obj.(*T))
	}
	return out
}

// Load reads the document at osPath as a T, attaches a context rooted at
// its tree path and registers it. With Deep every reference is resolved
// before Load returns. Root loads do not populate the resolution cache.
func Load[T any](t *Doctree, osPath string, mode Mode) (*T, error) {
	ctx, err := t.ContextForOS(osPath)
	if err != nil {
		return nil, err
	}
	typ := reflect.TypeFor[T]()
	w, done := t.startWalk()
	defer done()
	if err := w.begin(cacheKey{ctx.OSPath(), typ}, ctx.path); err != nil {
		return nil, err
	}
	defer w.end()

	v, err := t.construct(w, "", ctx, typ, reflect.New(typ), mode)
	if err != nil {
		return nil, err
	}
	t.obs.DocumentLoaded(typ)
	t.logger.Debug("doctree: loaded",
		slog.String("path", ctx.path),
		slog.String("type", typ.String()),
		slog.String("mode", mode.String()))
	return v.Interface().(*T), nil
}

// LoadPath is Load for a tree path instead of a filesystem path.
func LoadPath[T any](t *Doctree, treePath string, mode Mode) (*T, error) {
	return Load[T](t, t.OSPath(treePath), mode)
}

func (t *Doctree) read(referrer, treePath string) ([]byte, error) {
	data, err := t.store.Read(treePath)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &DocumentNotFoundError{Referrer: referrer, Target: treePath, Err: err}
	}
	if errors.Is(err, storage.ErrOutsideRoot) {
		return nil, &OutsideTreeError{Root: t.root, Path: treePath, Referrer: referrer}
	}
	return nil, fmt.Errorf("doctree: read /%s: %w", treePath, err)
}

// canonical makes p absolute and resolves symlinks where the file (or
// its directory) exists, so it compares cleanly against the root.
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}
