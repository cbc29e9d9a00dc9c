// Package testutil provides shared test helpers for content trees and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/reftree/internal/index"
	"github.com/starford/reftree/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "reftree-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteTree writes files (slash-separated paths relative to the root) into
// a fresh temporary directory and returns it.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// TestContent writes files into a temporary content tree and returns the
// root with a storage.Provider over it.
func TestContent(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	root := WriteTree(t, files)
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// FamilyFixture is a small content tree with one family, its class,
// collection, metadata and assets.
func FamilyFixture() map[string]string {
	return map[string]string{
		"classes/qchem.json": `{
	"name": "qchem",
	"attributeList": [
		{"name": "hamiltonian", "pythonType": "Hamiltonian", "doc": "Hamiltonian of the molecule"}
	],
	"parameterList": [
		{"name": "molname", "title": "Molecule"},
		{"name": "basis", "title": "Basis set"},
		{"name": "bondlength", "title": "Bond length"}
	]
}`,
		"collections/benchmarks.json": `{"slug": "benchmarks", "title": "Benchmarks", "about": "Benchmark problems", "thumbnail": "benchmarks.png"}`,
		"collections/benchmarks.png":  "png-benchmarks",
		"qchem/h2/dataset.json": `{
	"slug": "h2",
	"class": {"$ref": "/classes/qchem.json"},
	"collection": {"$ref": "/collections/benchmarks.json"},
	"downloadName": "h2",
	"data": [
		{"dataUrl": "https://datasets.example.com/qchem/h2/STO-3G/0.5.h5", "parameters": {"molname": "H2", "basis": "STO-3G", "bondlength": "0.5"}},
		{"dataUrl": "https://datasets.example.com/qchem/h2/STO-3G/0.7.h5", "parameters": {"molname": "H2", "basis": "STO-3G", "bondlength": "0.7"}},
		{"dataUrl": "https://datasets.example.com/qchem/h2/6-31G/0.5.h5", "parameters": {"molname": "H2", "basis": "6-31G", "bondlength": "0.5"}}
	],
	"features": [
		{"slug": "hamiltonian", "title": "Hamiltonian", "content": {"$ref": "features/hamiltonian.md"}},
		{"slug": "samples", "title": "Samples", "type": "SAMPLES", "content": "A sample."}
	],
	"meta": {"$ref": "meta.json"}
}`,
		"qchem/h2/meta.json": `{
	"authors": [{"name": "A. User", "username": "auser"}],
	"citation": {"$ref": "citation.bib"},
	"description": "The hydrogen molecule.",
	"license": "CC BY-SA 4.0",
	"dateOfLastModification": "2024-03-05",
	"dateOfPublication": "2023-11-20",
	"tags": ["chemistry"],
	"title": "H2 Molecule",
	"usingThisDataset": {"$ref": "using.md"},
	"heroImage": "images/hero.png",
	"thumbnail": "https://cdn.example.com/h2.png"
}`,
		"qchem/h2/citation.bib":            "@misc{h2, title = {H2}}",
		"qchem/h2/using.md":                "# Using this dataset\n\nLoad it with **qml.data.load**.\n",
		"qchem/h2/features/hamiltonian.md": "The *molecular* Hamiltonian.",
		"qchem/h2/images/hero.png":         "png-hero",
	}
}
