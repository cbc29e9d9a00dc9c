package doctree

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/reftree/internal/storage"
)

type userList struct {
	Users []string `json:"users"`
}

type referencedModel struct {
	Meta
	Name     string              `json:"name"`
	UserList Ref[userList]       `json:"user_list"`
	Info     Ref[map[string]any] `json:"meta"`
}

type rootModel struct {
	Meta
	Name       string                          `json:"name"`
	Citation   Ref[string]                     `json:"citation"`
	About      Ref[string]                     `json:"about"`
	References map[string]Ref[referencedModel] `json:"references"`
	UserList   Ref[userList]                   `json:"user_list"`
	MaybeNull  *Ref[map[string]any]            `json:"maybe_null"`
}

const rootModelJSON = `{
	"name": "model",
	"citation": "Me, September",
	"about": {"$ref": "text/about.txt"},
	"references": {
		"full_ref": {"$ref": "referenced_model.json"},
		"inline": {
			"name": "inline",
			"user_list": {"$ref": "/users/userlist.json"},
			"meta": {"$ref": "meta.json"}
		}
	},
	"user_list": {"$ref": "../users/userlist.json"},
	"maybe_null": null
}`

const resolvedRootJSON = `{
	"name": "model",
	"citation": "Me, September",
	"about": "This is a model!",
	"references": {
		"full_ref": {
			"name": "referenced",
			"user_list": {"users": ["A. User", "Foo"]},
			"meta": {"created_at": "2024-03-05T14:02:01.604165Z"}
		},
		"inline": {
			"name": "inline",
			"user_list": {"users": ["A. User", "Foo"]},
			"meta": {"created_at": "2024-03-05T14:02:01.604165Z"}
		}
	},
	"user_list": {"users": ["A. User", "Foo"]},
	"maybe_null": null
}`

func modelFixture() map[string]string {
	return map[string]string{
		"users/userlist.json":          `{"users": ["A. User", "Foo"]}`,
		"models/meta.json":             `{"created_at": "2024-03-05T14:02:01.604165Z"}`,
		"models/referenced_model.json": `{"name": "referenced", "user_list": {"$ref": "/users/userlist.json"}, "meta": {"$ref": "meta.json"}}`,
		"models/text/about.txt":        "This is a model!",
		"models/root_model.json":       rootModelJSON,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTree(t *testing.T, root string, opts ...Option) *Doctree {
	t.Helper()
	tree, err := New(root, opts...)
	require.NoError(t, err)
	return tree
}

func TestLoad_Deep(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	assert.Equal(t, "models/root_model.json", m.DocContext().Path())
	assert.Equal(t, "This is a model!", *m.About.Value())
	assert.Equal(t, "Me, September", *m.Citation.Value())
	assert.True(t, m.Citation.IsInline())
	assert.Nil(t, m.MaybeNull)

	full := m.References["full_ref"]
	require.True(t, full.IsResolved())
	assert.Equal(t, "referenced", full.Value().Name)
	assert.Equal(t, []string{"A. User", "Foo"}, full.Value().UserList.Value().Users)
	assert.Equal(t, "models/referenced_model.json", full.Value().DocContext().Path())

	inline := m.References["inline"]
	require.True(t, inline.IsInline())
	assert.Equal(t, "models/root_model.json", inline.Value().DocContext().Path())
	assert.True(t, inline.Value().UserList.IsResolved())

	assert.Empty(t, PendingRefs(m))

	got, err := Dump(m, DumpInline)
	require.NoError(t, err)
	assert.JSONEq(t, resolvedRootJSON, string(got))

	docs := tree.Documents()
	assert.Len(t, docs[reflect.TypeFor[rootModel]()], 1)
	assert.Len(t, docs[reflect.TypeFor[referencedModel]()], 2)
}

func TestLoad_Shallow(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Shallow)
	require.NoError(t, err)

	assert.True(t, m.About.IsPending())
	assert.True(t, m.UserList.IsPending())
	assert.True(t, m.References["full_ref"].IsPending())
	assert.True(t, m.References["inline"].IsInline())
	assert.True(t, m.References["inline"].Value().UserList.IsPending())

	p, ok := m.UserList.Pointer()
	require.True(t, ok)
	assert.Equal(t, Pointer("../users/userlist.json"), p)

	pending := PendingRefs(m)
	fields := make([]string, 0, len(pending))
	for _, pr := range pending {
		fields = append(fields, pr.Field)
	}
	assert.ElementsMatch(t, []string{
		"about",
		"references.full_ref",
		"references.inline.user_list",
		"references.inline.meta",
		"user_list",
	}, fields)

	got, err := Dump(m, DumpPointers)
	require.NoError(t, err)
	assert.JSONEq(t, rootModelJSON, string(got))

	inl, err := Dump(m, DumpInline)
	require.NoError(t, err)
	assert.JSONEq(t, rootModelJSON, string(inl))
}

func TestLoad_SharedInstance(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	a := m.UserList.Value()
	b := m.References["full_ref"].Value().UserList.Value()
	c := m.References["inline"].Value().UserList.Value()
	assert.Same(t, a, b)
	assert.Same(t, a, c)

	a.Users = append(a.Users, "Bar")
	assert.Equal(t, []string{"A. User", "Foo", "Bar"}, b.Users)
}

func TestLoad_LazyThenManualEqualsEager(t *testing.T) {
	root := writeTree(t, modelFixture())

	eager, err := Load[rootModel](newTree(t, root), filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	lazy, err := Load[rootModel](newTree(t, root), filepath.Join(root, "models", "root_model.json"), Shallow)
	require.NoError(t, err)
	for rounds := 0; ; rounds++ {
		require.Less(t, rounds, 10)
		pending := PendingRefs(lazy)
		if len(pending) == 0 {
			break
		}
		for _, pr := range pending {
			require.NoError(t, pr.Resolve(Shallow))
		}
	}

	want, err := Dump(eager, DumpInline)
	require.NoError(t, err)
	got, err := Dump(lazy, DumpInline)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestResolveRefs(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Shallow)
	require.NoError(t, err)
	require.NoError(t, ResolveRefs(m))
	assert.Empty(t, PendingRefs(m))

	got, err := Dump(m, DumpInline)
	require.NoError(t, err)
	assert.JSONEq(t, resolvedRootJSON, string(got))
}

func TestLoad_RoundTrip(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	dumped, err := Dump(m, DumpPointers)
	require.NoError(t, err)
	assert.JSONEq(t, rootModelJSON, string(dumped))

	var again rootModel
	require.NoError(t, json.Unmarshal(dumped, &again))
	redumped, err := Dump(&again, DumpPointers)
	require.NoError(t, err)
	assert.JSONEq(t, string(dumped), string(redumped))
}

func TestLoad_NoReferencesReadsOnce(t *testing.T) {
	root := writeTree(t, map[string]string{"users/userlist.json": `{"users": ["A"]}`})
	fs, err := storage.NewFS(root)
	require.NoError(t, err)
	counting := &countingProvider{Provider: fs}
	tree := newTree(t, root, WithStorage(counting))

	list, err := Load[userList](tree, filepath.Join(root, "users", "userlist.json"), Deep)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, list.Users)
	assert.Equal(t, 1, counting.reads)
}

func TestLoad_CachesPerPathAndType(t *testing.T) {
	root := writeTree(t, modelFixture())
	fs, err := storage.NewFS(root)
	require.NoError(t, err)
	counting := &countingProvider{Provider: fs}
	obs := &countingObserver{}
	tree := newTree(t, root, WithStorage(counting), WithObserver(obs))

	_, err = Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	// root, about, referenced_model, userlist, meta
	assert.Equal(t, 5, counting.reads)
	assert.Equal(t, 4, obs.misses)
	assert.Equal(t, 3, obs.hits)
	assert.Equal(t, 1, obs.loaded)

	_, ok := tree.CacheGet(tree.OSPath("users/userlist.json"), reflect.TypeFor[userList]())
	assert.True(t, ok)
	_, ok = tree.CacheGet(tree.OSPath("models/root_model.json"), reflect.TypeFor[rootModel]())
	assert.False(t, ok, "root loads are not cached")
}

func TestLoad_SamePathDifferentTypes(t *testing.T) {
	type asMap struct {
		Meta
		List Ref[userList]       `json:"list"`
		Raw  Ref[map[string]any] `json:"raw"`
	}
	root := writeTree(t, map[string]string{
		"users/userlist.json": `{"users": ["A"]}`,
		"doc.json":            `{"list": {"$ref": "users/userlist.json"}, "raw": {"$ref": "users/userlist.json"}}`,
	})
	tree := newTree(t, root)

	doc, err := Load[asMap](tree, filepath.Join(root, "doc.json"), Deep)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, doc.List.Value().Users)
	assert.Equal(t, []any{"A"}, (*doc.Raw.Value())["users"])
}

func TestLoad_DeepCacheHitResolvesCachedTarget(t *testing.T) {
	type leaf struct {
		Meta
		Name string `json:"name"`
	}
	type middle struct {
		Meta
		Leaf Ref[leaf] `json:"leaf"`
	}
	type top struct {
		Meta
		Middle Ref[middle] `json:"middle"`
	}
	root := writeTree(t, map[string]string{
		"leaf.json":   `{"name": "leaf"}`,
		"middle.json": `{"leaf": {"$ref": "leaf.json"}}`,
		"a.json":      `{"middle": {"$ref": "middle.json"}}`,
		"b.json":      `{"middle": {"$ref": "middle.json"}}`,
	})
	tree := newTree(t, root)

	a, err := Load[top](tree, filepath.Join(root, "a.json"), Shallow)
	require.NoError(t, err)
	mid, err := a.Middle.Resolve(a.DocContext(), Shallow)
	require.NoError(t, err)
	assert.True(t, mid.Leaf.IsPending())

	b, err := Load[top](tree, filepath.Join(root, "b.json"), Deep)
	require.NoError(t, err)
	assert.Same(t, mid, b.Middle.Value())
	require.True(t, mid.Leaf.IsResolved())
	assert.Equal(t, "leaf", mid.Leaf.Value().Name)
}

func TestLoad_DocumentNotFound(t *testing.T) {
	root := writeTree(t, map[string]string{
		"models/referenced_model.json": `{"name": "x", "user_list": {"$ref": "missing.json"}, "meta": {}}`,
	})
	tree := newTree(t, root)

	_, err := Load[referencedModel](tree, filepath.Join(root, "models", "referenced_model.json"), Deep)
	require.ErrorIs(t, err, ErrDocumentNotFound)
	var nf *DocumentNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "models/referenced_model.json", nf.Referrer)
	assert.Equal(t, "models/missing.json", nf.Target)
	assert.Contains(t, err.Error(), "/models/missing.json")
	assert.Contains(t, err.Error(), "/models/referenced_model.json")

	shallow, err := Load[referencedModel](newTree(t, root), filepath.Join(root, "models", "referenced_model.json"), Shallow)
	require.NoError(t, err, "shallow loads do not open targets")
	_, err = shallow.UserList.Resolve(shallow.DocContext(), Shallow)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.True(t, shallow.UserList.IsPending())
}

func TestLoad_RootErrors(t *testing.T) {
	root := writeTree(t, map[string]string{"a.json": `{}`})
	tree := newTree(t, root)

	_, err := Load[userList](tree, filepath.Join(root, "nope.json"), Deep)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = Load[userList](tree, filepath.Join(t.TempDir(), "a.json"), Deep)
	assert.ErrorIs(t, err, ErrOutsideTree)
}

func TestLoad_OutsideTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/b.json": `{"name": "x", "user_list": {"$ref": "../../outside.json"}, "meta": {}}`,
	})
	tree := newTree(t, root)

	_, err := Load[referencedModel](tree, filepath.Join(root, "a", "b.json"), Deep)
	var ote *OutsideTreeError
	require.ErrorAs(t, err, &ote)
	assert.Equal(t, "a/b.json", ote.Referrer)
	assert.Equal(t, "../../outside.json", ote.Pointer)
}

func TestLoad_InvalidPointer(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.json": `{"name": "x", "user_list": {"$ref": 5}, "meta": {}}`,
	})
	tree := newTree(t, root)

	_, err := Load[referencedModel](tree, filepath.Join(root, "a.json"), Shallow)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

type node struct {
	Meta
	Name string    `json:"name"`
	Next Ref[node] `json:"next"`
}

func TestLoad_CycleDetected(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.json": `{"name": "a", "next": {"$ref": "b.json"}}`,
		"b.json": `{"name": "b", "next": {"$ref": "a.json"}}`,
	})
	tree := newTree(t, root)

	_, err := Load[node](tree, filepath.Join(root, "a.json"), Deep)
	require.ErrorIs(t, err, ErrReferenceCycle)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"a.json", "b.json", "a.json"}, ce.Chain)
}

func TestLoad_SelfReference(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.json": `{"name": "a", "next": {"$ref": "a.json"}}`,
	})
	_, err := Load[node](newTree(t, root), filepath.Join(root, "a.json"), Deep)
	assert.ErrorIs(t, err, ErrReferenceCycle)
}

func TestLoad_CycleShallowTerminates(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.json": `{"name": "a", "next": {"$ref": "b.json"}}`,
		"b.json": `{"name": "b", "next": {"$ref": "a.json"}}`,
	})
	tree := newTree(t, root)

	a, err := Load[node](tree, filepath.Join(root, "a.json"), Shallow)
	require.NoError(t, err)
	for rounds := 0; len(PendingRefs(a)) > 0; rounds++ {
		require.Less(t, rounds, 10)
		for _, pr := range PendingRefs(a) {
			require.NoError(t, pr.Resolve(Shallow))
		}
	}
	b := a.Next.Value()
	assert.Equal(t, "b", b.Name)
	// The cached a.json is a different instance from the uncached root.
	assert.Equal(t, "a", b.Next.Value().Name)
	assert.NotSame(t, a, b.Next.Value())
	assert.Same(t, b, b.Next.Value().Next.Value())
}

func TestCacheUpdate_Duplicate(t *testing.T) {
	tree := newTree(t, t.TempDir())
	typ := reflect.TypeFor[userList]()

	require.NoError(t, tree.CacheUpdate("/x/a.json", typ, &userList{}))
	err := tree.CacheUpdate("/x/a.json", typ, &userList{})
	require.ErrorIs(t, err, ErrDuplicateCacheKey)
	var dup *DuplicateCacheKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "/x/a.json", dup.OSPath)
	assert.Equal(t, typ, dup.Type)

	require.NoError(t, tree.CacheUpdate("/x/a.json", reflect.TypeFor[map[string]any](), &map[string]any{}))
}

func TestLoad_ValidationError(t *testing.T) {
	root := writeTree(t, map[string]string{
		"users/userlist.json": `{"users": 5}`,
		"doc.json":            `{"name": "x", "user_list": {"$ref": "users/userlist.json"}, "meta": {}}`,
	})
	tree := newTree(t, root)

	_, err := Load[referencedModel](tree, filepath.Join(root, "doc.json"), Deep)
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "doc.json", ve.Referrer)
	assert.Equal(t, "users/userlist.json", ve.Target)
	assert.Equal(t, "users", ve.Field)
	assert.Equal(t, reflect.TypeFor[userList](), ve.Type)
}

type slugDoc struct {
	Meta
	Slug string `json:"slug"`
}

func (d slugDoc) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Slug, validation.Required),
	)
}

type slugHolder struct {
	Meta
	Item Ref[slugDoc] `json:"item"`
}

func TestLoad_DocumentValidateHook(t *testing.T) {
	root := writeTree(t, map[string]string{
		"item.json": `{"slug": ""}`,
		"doc.json":  `{"item": {"$ref": "item.json"}}`,
	})
	tree := newTree(t, root)

	_, err := Load[slugHolder](tree, filepath.Join(root, "doc.json"), Deep)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slug", ve.Field)
	assert.Equal(t, "item.json", ve.Target)
	assert.Equal(t, "doc.json", ve.Referrer)
}

func TestLoad_TextIntoStructFails(t *testing.T) {
	root := writeTree(t, map[string]string{
		"about.txt": "plain",
		"doc.json":  `{"name": "x", "user_list": {"$ref": "about.txt"}, "meta": {}}`,
	})
	_, err := Load[referencedModel](newTree(t, root), filepath.Join(root, "doc.json"), Deep)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoad_YAML(t *testing.T) {
	root := writeTree(t, map[string]string{
		"users.yaml": "users:\n  - A. User\n  - Foo\n",
		"doc.yml":    "name: yaml\nuser_list:\n  $ref: users.yaml\nmeta:\n  created: 2024\n",
	})
	tree := newTree(t, root)

	doc, err := Load[referencedModel](tree, filepath.Join(root, "doc.yml"), Deep)
	require.NoError(t, err)
	assert.Equal(t, "yaml", doc.Name)
	assert.Equal(t, []string{"A. User", "Foo"}, doc.UserList.Value().Users)
	assert.True(t, doc.Info.IsInline())
	assert.EqualValues(t, 2024, (*doc.Info.Value())["created"])
}

func TestLoad_UntypedReferenceWarns(t *testing.T) {
	type loose struct {
		Meta
		Anything Ref[any] `json:"anything"`
	}
	root := writeTree(t, map[string]string{
		"meta.json": `{"k": "v"}`,
		"doc.json":  `{"anything": {"$ref": "meta.json"}}`,
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tree := newTree(t, root, WithLogger(logger))

	doc, err := Load[loose](tree, filepath.Join(root, "doc.json"), Deep)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, *doc.Anything.Value())
	assert.Contains(t, buf.String(), "untyped reference")
	assert.Contains(t, buf.String(), "could not determine resolve type")
}

type countingProvider struct {
	storage.Provider
	mu    sync.Mutex
	reads int
}

func (c *countingProvider) Read(path string) ([]byte, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Provider.Read(path)
}

type slowProvider struct {
	storage.Provider
	delay time.Duration
	mu    sync.Mutex
	reads int
}

func (s *slowProvider) Read(path string) ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	time.Sleep(s.delay)
	return s.Provider.Read(path)
}

func TestResolve_ConcurrentSameKey(t *testing.T) {
	root := writeTree(t, modelFixture())
	fs, err := storage.NewFS(root)
	require.NoError(t, err)
	slow := &slowProvider{Provider: fs, delay: 20 * time.Millisecond}
	tree := newTree(t, root, WithStorage(slow))
	ctx := tree.ContextFor("models/root_model.json")

	const workers = 4
	got := make([]*userList, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := RefTo[userList]("/users/userlist.json")
			got[i], errs[i] = ref.Resolve(ctx, Deep)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, slow.reads)
}

func TestLoad_ConcurrentRoots(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, Objects[rootModel](tree), 4)
	_, ok := tree.CacheGet(tree.OSPath("models/referenced_model.json"), reflect.TypeFor[referencedModel]())
	assert.True(t, ok)
}

func TestJoinField(t *testing.T) {
	assert.Equal(t, "slug", joinField("", "slug"))
	assert.Equal(t, "slug", joinField("slug", ""))
	assert.Equal(t, "references.full_ref", joinField("references", "full_ref"))
	assert.Equal(t, "", joinField("", ""))
}

type countingObserver struct {
	loaded, hits, misses, failed int
}

func (o *countingObserver) DocumentLoaded(reflect.Type)       { o.loaded++ }
func (o *countingObserver) CacheHit(reflect.Type)             { o.hits++ }
func (o *countingObserver) CacheMiss(reflect.Type)            { o.misses++ }
func (o *countingObserver) ResolveFailed(reflect.Type, error) { o.failed++ }

func TestEdges(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Shallow)
	require.NoError(t, err)

	const src = "models/root_model.json"
	assert.Equal(t, []Edge{
		{Source: src, Field: "about", Pointer: "text/about.txt", Target: "models/text/about.txt"},
		{Source: src, Field: "references.full_ref", Pointer: "referenced_model.json", Target: "models/referenced_model.json"},
		{Source: src, Field: "user_list", Pointer: "../users/userlist.json", Target: "users/userlist.json"},
	}, Edges(m))

	inline := m.References["inline"].Value()
	assert.Equal(t, []Edge{
		{Source: src, Field: "user_list", Pointer: "/users/userlist.json", Target: "users/userlist.json"},
		{Source: src, Field: "meta", Pointer: "meta.json", Target: "models/meta.json"},
	}, Edges(inline))
}

func TestAll_FileRootFirst(t *testing.T) {
	root := writeTree(t, modelFixture())
	tree := newTree(t, root)

	m, err := Load[rootModel](tree, filepath.Join(root, "models", "root_model.json"), Deep)
	require.NoError(t, err)

	all := tree.All()
	require.Len(t, all, 3)
	assert.Same(t, m, all[0])
	assert.Same(t, m.References["full_ref"].Value(), all[1])
	assert.Same(t, m.References["inline"].Value(), all[2])
}
