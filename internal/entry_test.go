package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/testutil"
)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Content.Root = testutil.WriteTree(t, files)
	cfg.Build.Dir = filepath.Join(t.TempDir(), "build")
	cfg.Build.AssetURLPrefix = "https://assets.example.com"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "reftree.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t, testutil.FamilyFixture())

	res, err := Build(context.Background(), WithConfig(cfg), quiet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filepath.Base(res.OutputPath) != cfg.Build.Output {
		t.Errorf("output = %q", res.OutputPath)
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
	if _, ok := res.Manifest.DatasetFamilies["h2"]; !ok {
		t.Errorf("families = %v", res.Manifest.DatasetFamilies)
	}
}

func TestCheck(t *testing.T) {
	cfg := testConfig(t, testutil.FamilyFixture())
	if err := Check(context.Background(), WithConfig(cfg), quiet()); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if err := os.Remove(filepath.Join(cfg.Content.Root, "qchem", "h2", "citation.bib")); err != nil {
		t.Fatal(err)
	}
	err := Check(context.Background(), WithConfig(cfg), quiet())
	if !errors.Is(err, doctree.ErrDocumentNotFound) {
		t.Errorf("err = %v, want document not found", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
