package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/starford/reftree/internal/checksum"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/parser"
)

// TextType is the document type recorded for referenced text files
// (Markdown, BibTeX, plain text) that are not structured documents.
const TextType = "text"

var textExts = map[string]bool{".md": true, ".markdown": true, ".txt": true, ".bib": true}

// Loader loads the root document at treePath into tree.
type Loader func(tree *doctree.Doctree, treePath string) error

// Source describes the content tree an index is rebuilt from.
type Source struct {
	Root    string
	Pattern string
	Load    Loader
	Options []doctree.Option
}

// Stats summarizes one Record pass.
type Stats struct {
	Indexed   int
	Unchanged int
	Removed   int
}

// Rebuild walks src into a fresh tree and records it. Roots that fail to
// load are logged and skipped, so one broken file does not empty the index.
func Rebuild(ctx context.Context, db *DB, src Source, logger *slog.Logger) (*doctree.Doctree, error) {
	tree, err := doctree.New(src.Root, src.Options...)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	paths, err := tree.Storage().Glob(src.Pattern)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := src.Load(tree, p); err != nil {
			logger.Warn("rebuild: load failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	stats, err := Record(db, tree, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("rebuild: done",
		slog.Int("roots", len(paths)),
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("removed", stats.Removed))
	return tree, nil
}

type fileEntry struct {
	typ    string
	docs   []doctree.Document
	assets []*doctree.Asset
}

// Record brings the index in line with every file the walk in tree
// touched: document files, the text files they reference, and nothing
// else. Files whose checksum is unchanged are skipped; indexed paths the
// walk did not touch are removed.
func Record(db *DB, tree *doctree.Doctree, logger *slog.Logger) (Stats, error) {
	var stats Stats
	files := make(map[string]*fileEntry)
	var order []string
	entry := func(p string) *fileEntry {
		e, ok := files[p]
		if !ok {
			e = &fileEntry{}
			files[p] = e
			order = append(order, p)
		}
		return e
	}

	for _, obj := range tree.All() {
		switch x := obj.(type) {
		case doctree.Document:
			ctx := x.DocContext()
			if ctx == nil {
				continue
			}
			e := entry(ctx.Path())
			if e.typ == "" {
				e.typ = reflect.TypeOf(x).Elem().String()
			}
			e.docs = append(e.docs, x)
		case *doctree.Asset:
			if ctx := x.Context(); ctx != nil {
				e := entry(ctx.Path())
				e.assets = append(e.assets, x)
			}
		}
	}

	// Text files only exist as reference targets.
	for _, p := range append([]string(nil), order...) {
		for _, d := range files[p].docs {
			for _, edge := range doctree.Edges(d) {
				if edge.Target == "" || !textExts[path.Ext(edge.Target)] {
					continue
				}
				if _, ok := files[edge.Target]; !ok {
					entry(edge.Target).typ = TextType
				}
			}
		}
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	for _, p := range order {
		e := files[p]
		if e.typ != TextType && len(e.docs) == 0 {
			continue
		}
		data, err := tree.Storage().Read(p)
		if err != nil {
			logger.Warn("record: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Sum(data)
		if checksums[p] == cs {
			stats.Unchanged++
			continue
		}

		row := DocumentRow{Path: p, Type: e.typ, Checksum: cs, UpdatedAt: time.Now().UTC()}
		var body string
		if e.typ == TextType {
			res, err := parser.Parse(data)
			if err != nil {
				logger.Warn("record: parse failed", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			row.Title, body = res.Title, res.Text
		} else {
			row.Title, body = describe(e.docs[0])
		}

		if err := db.UpsertDocument(row, body, refRows(e.docs), assetRows(e.assets)); err != nil {
			logger.Warn("record: index failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("record: indexed", slog.String("path", p), slog.String("type", e.typ))
	}

	for p := range checksums {
		if _, ok := files[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("record: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("record: removed stale", slog.String("path", p))
	}
	return stats, nil
}

func refRows(docs []doctree.Document) []RefRow {
	var out []RefRow
	for _, d := range docs {
		for _, e := range doctree.Edges(d) {
			out = append(out, RefRow{Source: e.Source, Field: e.Field, Pointer: string(e.Pointer), Target: e.Target})
		}
	}
	return out
}

func assetRows(assets []*doctree.Asset) []AssetRow {
	out := make([]AssetRow, 0, len(assets))
	for _, a := range assets {
		row := AssetRow{Source: a.Context().Path(), Location: a.Location(), Local: a.IsLocal()}
		if a.IsLocal() {
			row.Target, _ = a.TreePath()
		}
		out = append(out, row)
	}
	return out
}

var titleKeys = []string{"title", "name", "slug"}

// describe returns a display title and the searchable plain text of doc's
// own content. Pointer literals are left out.
func describe(doc doctree.Document) (string, string) {
	data, err := doctree.Dump(doc, doctree.DumpPointers)
	if err != nil {
		return "", ""
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", ""
	}
	var title string
	for _, k := range titleKeys {
		if s, ok := v[k].(string); ok && s != "" {
			title = s
			break
		}
	}
	var parts []string
	collectText(v, &parts)
	return title, parser.PlainText([]byte(strings.Join(parts, "\n\n")))
}

func collectText(v any, out *[]string) {
	switch x := v.(type) {
	case string:
		if x != "" {
			*out = append(*out, x)
		}
	case []any:
		for _, item := range x {
			collectText(item, out)
		}
	case map[string]any:
		if _, ok := x[doctree.RefKey]; ok && len(x) == 1 {
			return
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectText(x[k], out)
		}
	}
}
