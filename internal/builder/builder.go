// Package builder compiles a content tree into the datasets build: one
// manifest document holding every family, class and collection, plus a
// directory of content-addressed assets.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/schemas"
	"github.com/starford/reftree/internal/storage"
)

const (
	DefaultPattern    = "**/dataset.json"
	DefaultOutputName = "datasets-build.json"
)

// Options configures a build.
type Options struct {
	ContentRoot string
	BuildDir    string
	// AssetURLPrefix is the public URL local assets are published under.
	AssetURLPrefix string
	Pattern        string
	OutputName     string
	Logger         *slog.Logger
	Observer       doctree.Observer
}

func (o *Options) defaults() {
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.OutputName == "" {
		o.OutputName = DefaultOutputName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manifest is the datasets-build.json document.
type Manifest struct {
	BuildID            string                         `json:"buildId"`
	Assets             []string                       `json:"assets"`
	DatasetClasses     map[string]*schemas.Class      `json:"datasetClasses"`
	DatasetFamilies    map[string]*schemas.Family     `json:"datasetFamilies"`
	DatasetCollections map[string]*schemas.Collection `json:"datasetCollections"`
}

// Result is the outcome of a successful build.
type Result struct {
	Manifest   *Manifest
	Tree       *doctree.Doctree
	OutputPath string
}

// Compile recreates the build directory, loads every family matching the
// content pattern with all references resolved, publishes local assets
// and writes the manifest.
func Compile(ctx context.Context, opts Options) (*Result, error) {
	opts.defaults()

	if err := os.RemoveAll(opts.BuildDir); err != nil {
		return nil, fmt.Errorf("builder: clean build dir: %w", err)
	}
	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return nil, fmt.Errorf("builder: create build dir: %w", err)
	}
	out, err := storage.NewFS(opts.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	tree, err := newTree(opts)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		BuildID:            uuid.NewString(),
		DatasetClasses:     make(map[string]*schemas.Class),
		DatasetFamilies:    make(map[string]*schemas.Family),
		DatasetCollections: make(map[string]*schemas.Collection),
	}

	families, err := loadFamilies(ctx, tree, opts.Pattern)
	if err != nil {
		return nil, err
	}
	for _, f := range families {
		if err := m.add(f); err != nil {
			return nil, err
		}
		f.ParameterTree = ParameterTree(f)
	}

	assets := newAssetLoader(out, opts.AssetURLPrefix)
	seen := make(map[string]struct{})
	for _, a := range doctree.Objects[doctree.Asset](tree) {
		u, err := assets.add(a)
		if err != nil {
			return nil, err
		}
		a.Publish(u)
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			m.Assets = append(m.Assets, u)
		}
	}
	sort.Strings(m.Assets)

	data, err := doctree.DumpIndent(m, doctree.DumpInline, "  ")
	if err != nil {
		return nil, fmt.Errorf("builder: encode manifest: %w", err)
	}
	if err := out.Write(opts.OutputName, data); err != nil {
		return nil, fmt.Errorf("builder: write manifest: %w", err)
	}

	opts.Logger.Info("build compiled",
		slog.String("build_id", m.BuildID),
		slog.Int("families", len(m.DatasetFamilies)),
		slog.Int("classes", len(m.DatasetClasses)),
		slog.Int("collections", len(m.DatasetCollections)),
		slog.Int("assets", len(m.Assets)),
		slog.Int("copied", assets.copied))

	return &Result{
		Manifest:   m,
		Tree:       tree,
		OutputPath: filepath.Join(out.Root(), opts.OutputName),
	}, nil
}

func newTree(opts Options) (*doctree.Doctree, error) {
	treeOpts := []doctree.Option{doctree.WithLogger(opts.Logger)}
	if opts.Observer != nil {
		treeOpts = append(treeOpts, doctree.WithObserver(opts.Observer))
	}
	tree, err := doctree.New(opts.ContentRoot, treeOpts...)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	return tree, nil
}

func loadFamilies(ctx context.Context, tree *doctree.Doctree, pattern string) ([]*schemas.Family, error) {
	paths, err := tree.Storage().Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	families := make([]*schemas.Family, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := doctree.LoadPath[schemas.Family](tree, p, doctree.Deep)
		if err != nil {
			return nil, fmt.Errorf("builder: load %s: %w", p, err)
		}
		families = append(families, f)
	}
	return families, nil
}

// add records f with its class and collection. Classes and collections
// are shared by name; two different files claiming the same name is an
// error.
func (m *Manifest) add(f *schemas.Family) error {
	if _, ok := m.DatasetFamilies[string(f.Slug)]; ok {
		return fmt.Errorf("builder: family with slug %q already exists", f.Slug)
	}

	if c := f.Class.Value(); c != nil {
		if existing, ok := m.DatasetClasses[string(c.Name)]; !ok {
			m.DatasetClasses[string(c.Name)] = c
		} else if !sameFile(existing.DocContext(), c.DocContext()) {
			return fmt.Errorf("builder: duplicate class %q definition on family %q", c.Name, f.Slug)
		}
	}

	if f.Collection != nil {
		if c := f.Collection.Value(); c != nil {
			if existing, ok := m.DatasetCollections[string(c.Slug)]; !ok {
				m.DatasetCollections[string(c.Slug)] = c
			} else if !sameFile(existing.DocContext(), c.DocContext()) {
				return fmt.Errorf("builder: duplicate collection %q definition on family %q", c.Slug, f.Slug)
			}
		}
	}

	m.DatasetFamilies[string(f.Slug)] = f
	return nil
}

func sameFile(a, b *doctree.Context) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.OSPath() == b.OSPath()
}
