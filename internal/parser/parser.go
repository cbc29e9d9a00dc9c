// Package parser extracts frontmatter, headings, plain text and link
// destinations from Markdown document content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

var md = goldmark.New()

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	// Text is the body with Markdown syntax stripped, for search.
	Text   string
	Title  string
	Links  []string
	Images []string
	Tags   []string
}

// Parse extracts frontmatter, title, plain text, links and tags from raw
// Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	links, images := extractLinks(doc, src)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Text:        nodeText(doc, src),
		Title:       deriveTitle(fm, doc, src),
		Links:       links,
		Images:      images,
		Tags:        extractTags(body, fm),
	}, nil
}

// PlainText returns Markdown content with its syntax stripped.
func PlainText(data []byte) string {
	r, err := Parse(data)
	if err != nil {
		return string(data)
	}
	return r.Text
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole input is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// nodeText concatenates the text of n and its descendants. Blocks are
// separated by newlines; code blocks keep their lines verbatim.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.URL(src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// extractLinks returns deduplicated link and image destinations.
func extractLinks(doc ast.Node, src []byte) (links, images []string) {
	seenLink := make(map[string]struct{})
	seenImage := make(map[string]struct{})
	add := func(seen map[string]struct{}, out *[]string, dest string) {
		dest = strings.TrimSpace(dest)
		if dest == "" {
			return
		}
		if _, ok := seen[dest]; ok {
			return
		}
		seen[dest] = struct{}{}
		*out = append(*out, dest)
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			add(seenLink, &links, string(node.Destination))
		case *ast.Image:
			add(seenImage, &images, string(node.Destination))
		case *ast.AutoLink:
			add(seenLink, &links, string(node.URL(src)))
		}
		return ast.WalkContinue, nil
	})
	return links, images
}

// extractTags collects #tags from body and from frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"].([]interface{}); ok {
			for _, item := range raw {
				s, ok := item.(string)
				if !ok {
					continue
				}
				s = strings.TrimSpace(s)
				if _, dup := seen[s]; s != "" && !dup {
					seen[s] = struct{}{}
					out = append(out, s)
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, doc ast.Node, src []byte) string {
	if fm != nil {
		if s, ok := fm["title"].(string); ok && s != "" {
			return s
		}
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return nodeText(h, src)
		}
	}
	return ""
}
