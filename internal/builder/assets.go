package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/reftree/internal/checksum"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/storage"
)

const assetDir = "assets"

// assetLoader copies local assets into the build under a name derived
// from their content and maps them to public URLs.
type assetLoader struct {
	out    storage.Provider
	prefix string
	// names maps an asset's filesystem path to its published name.
	names  map[string]string
	copied int
}

func newAssetLoader(out storage.Provider, prefix string) *assetLoader {
	return &assetLoader{
		out:    out,
		prefix: strings.TrimRight(prefix, "/"),
		names:  make(map[string]string),
	}
}

// add returns the public URL of a. Remote assets are returned unchanged.
func (l *assetLoader) add(a *doctree.Asset) (string, error) {
	if !a.IsLocal() {
		return a.Location(), nil
	}
	osPath, err := a.OSPath()
	if err != nil {
		return "", fmt.Errorf("builder: asset %s: %w", a, err)
	}
	name, ok := l.names[osPath]
	if !ok {
		name, err = l.copy(osPath)
		if err != nil {
			return "", err
		}
		l.names[osPath] = name
	}
	return l.url(name), nil
}

func (l *assetLoader) url(name string) string {
	return l.prefix + "/" + name
}

func (l *assetLoader) copy(osPath string) (string, error) {
	digest, err := checksum.FileSHA1(osPath)
	if err != nil {
		return "", fmt.Errorf("builder: hash asset: %w", err)
	}
	ext := filepath.Ext(osPath)
	stem := strings.TrimSuffix(filepath.Base(osPath), ext)
	name := stem + "-" + digest + ext
	dest := assetDir + "/" + name

	if _, err := l.out.Stat(dest); err == nil {
		return name, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("builder: stat %s: %w", dest, err)
	}

	f, err := os.Open(osPath)
	if err != nil {
		return "", fmt.Errorf("builder: open asset: %w", err)
	}
	defer f.Close()
	if err := l.out.WriteFrom(dest, f); err != nil {
		return "", fmt.Errorf("builder: copy asset: %w", err)
	}
	l.copied++
	return name, nil
}
