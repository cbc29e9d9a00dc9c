package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/schemas"
)

const classPattern = "**/class.json"

// LoadClasses loads every class.json in the tree.
func LoadClasses(tree *doctree.Doctree) ([]*schemas.Class, error) {
	paths, err := tree.Storage().Glob(classPattern)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	out := make([]*schemas.Class, 0, len(paths))
	for _, p := range paths {
		c, err := doctree.LoadPath[schemas.Class](tree, p, doctree.Deep)
		if err != nil {
			return nil, fmt.Errorf("builder: load %s: %w", p, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Check loads every family matching the content pattern in a fresh tree
// without writing anything. Every failing family is reported.
func Check(ctx context.Context, opts Options) (*doctree.Doctree, error) {
	opts.defaults()
	tree, err := newTree(opts)
	if err != nil {
		return nil, err
	}
	paths, err := tree.Storage().Glob(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := doctree.LoadPath[schemas.Family](tree, p, doctree.Deep); err != nil {
			opts.Logger.Warn("check failed", slog.String("path", p), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	opts.Logger.Info("check complete", slog.Int("families", len(paths)), slog.Int("failed", len(errs)))
	return tree, errors.Join(errs...)
}
