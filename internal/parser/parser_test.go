package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - qchem\n  - spin\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "qchem" || r.Tags[1] != "spin" {
		t.Errorf("tags = %v, want [qchem spin]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_PlainText(t *testing.T) {
	input := []byte("# Using this dataset\n\nLoad it with **qml.data.load** and see [the docs](https://docs.example.com).\n\n```python\nqml.data.load('qchem')\n```\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Using this dataset", "qml.data.load", "the docs", "qml.data.load('qchem')"} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("text %q does not contain %q", r.Text, want)
		}
	}
	for _, syntax := range []string{"**", "](", "```", "# "} {
		if strings.Contains(r.Text, syntax) {
			t.Errorf("text %q still contains %q", r.Text, syntax)
		}
	}
}

func TestParse_LinksAndImages(t *testing.T) {
	input := []byte("See [a](a.md), [a again](a.md) and <https://example.com>.\n\n![hero](img/hero.png)\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Links) != 2 || r.Links[0] != "a.md" || r.Links[1] != "https://example.com" {
		t.Errorf("links = %v", r.Links)
	}
	if len(r.Images) != 1 || r.Images[0] != "img/hero.png" {
		t.Errorf("images = %v", r.Images)
	}
}

func TestExtractTags_Inline(t *testing.T) {
	tags := extractTags("Molecules #qchem and #spin-systems here", nil)
	if len(tags) != 2 || tags[0] != "qchem" || tags[1] != "spin-systems" {
		t.Errorf("tags = %v", tags)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText([]byte("*Me*, September"))
	if got != "Me, September" {
		t.Errorf("PlainText = %q, want %q", got, "Me, September")
	}
}
