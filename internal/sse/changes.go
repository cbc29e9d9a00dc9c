package sse

import (
	"errors"
	"sort"

	"github.com/starford/reftree/internal/apperr"
	"github.com/starford/reftree/internal/index"
)

// Change is the payload of a document.changed event.
type Change struct {
	Path string `json:"path"`
	// Indexed is false when the file is no longer a document or text
	// target in the tree, e.g. after a delete or for an asset.
	Indexed bool   `json:"indexed"`
	Type    string `json:"type,omitempty"`
	Title   string `json:"title,omitempty"`
	// Referrers lists the documents whose pointers name Path.
	Referrers []string `json:"referrers,omitempty"`
}

// Describe looks up each changed tree path in the rebuilt index.
func Describe(db index.Index, paths []string) ([]Change, error) {
	out := make([]Change, 0, len(paths))
	for _, p := range paths {
		c := Change{Path: p}
		row, err := db.GetDocument(p)
		switch {
		case err == nil:
			c.Indexed = true
			c.Type = row.Type
			c.Title = row.Title
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}

		refs, err := db.Backlinks(p)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(refs))
		for _, r := range refs {
			if _, ok := seen[r.Source]; ok {
				continue
			}
			seen[r.Source] = struct{}{}
			c.Referrers = append(c.Referrers, r.Source)
		}
		sort.Strings(c.Referrers)
		out = append(out, c)
	}
	return out, nil
}
