// Package schemas defines the dataset content documents moved through the
// document tree: families, their metadata, classes and collections.
package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/parser"
)

var (
	slugRe       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	bibtexRe     = regexp.MustCompile(`@[A-Za-z]+\s*\{`)
)

// Slug is a lowercase, dash-separated identifier used in URLs.
type Slug string

func (s Slug) Validate() error {
	return validation.Validate(string(s), validation.Required, validation.Match(slugRe).Error("must be a lowercase dash-separated slug"))
}

// Identifier is a legal Python identifier.
type Identifier string

func (i Identifier) Validate() error {
	return validation.Validate(string(i), validation.Required, validation.Match(identifierRe).Error("must be a valid Python identifier"))
}

// Markdown is text content that may use Markdown syntax.
type Markdown string

// PlainText returns the content with Markdown syntax stripped.
func (m Markdown) PlainText() string { return parser.PlainText([]byte(m)) }

// Bibtex is a citation in BibTeX format with at least one entry.
type Bibtex string

func (b Bibtex) Validate() error {
	if !bibtexRe.MatchString(string(b)) {
		return errors.New("citation has no BibTeX entries")
	}
	if strings.Count(string(b), "{") != strings.Count(string(b), "}") {
		return errors.New("citation has unbalanced braces")
	}
	return nil
}

// Date is a calendar date in ISO 8601 form (YYYY-MM-DD).
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// requiredRef fails for a reference that holds neither a pointer nor a value.
var requiredRef = validation.By(func(value interface{}) error {
	if z, ok := value.(interface{ IsZero() bool }); ok && z.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
})

var requiredDate = validation.By(func(value interface{}) error {
	if d, ok := value.(Date); ok && d.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
})

// refValue validates the inline or resolved value of a reference.
func refValue[T any]() validation.Rule {
	return validation.By(func(value interface{}) error {
		var v *T
		switch r := value.(type) {
		case doctree.Ref[T]:
			v = r.Value()
		case *doctree.Ref[T]:
			if r != nil {
				v = r.Value()
			}
		}
		if v == nil {
			return nil
		}
		if vv, ok := any(*v).(validation.Validatable); ok {
			return vv.Validate()
		}
		return nil
	})
}
