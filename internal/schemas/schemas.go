package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/reftree/internal/doctree"
)

// Author is a dataset author, optionally linked to a profile username.
type Author struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// UnmarshalJSON rejects unknown fields.
func (a *Author) UnmarshalJSON(data []byte) error {
	type plain Author
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p plain
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	*a = Author(p)
	return nil
}

func (a Author) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
	)
}

// Dataset is one downloadable data file of a family.
type Dataset struct {
	doctree.Meta
	DataURL    string     `json:"dataUrl"`
	Parameters Parameters `json:"parameters"`
}

func (d Dataset) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DataURL, validation.Required, is.URL),
		validation.Field(&d.Parameters),
	)
}

// Attribute is an expected attribute on datasets of a class.
type Attribute struct {
	Name       Identifier `json:"name"`
	PythonType string     `json:"pythonType"`
	Doc        string     `json:"doc"`
	Optional   bool       `json:"optional"`
}

func (a Attribute) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.PythonType, validation.Required),
	)
}

// Parameter is a parameter every dataset of a class is keyed by.
type Parameter struct {
	Name        Identifier `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Optional    bool       `json:"optional"`
}

func (p Parameter) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Title, validation.Required),
	)
}

// Class is a class of datasets, e.g. qchem or qspin.
type Class struct {
	doctree.Meta
	Name          Identifier  `json:"name"`
	AttributeList []Attribute `json:"attributeList"`
	ParameterList []Parameter `json:"parameterList"`
}

func (c Class) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.AttributeList, validation.By(uniqueNames(func(a Attribute) Identifier { return a.Name }))),
		validation.Field(&c.ParameterList, validation.By(uniqueNames(func(p Parameter) Identifier { return p.Name }))),
	)
}

// Parameter returns the class parameter called name.
func (c *Class) Parameter(name string) (Parameter, bool) {
	for _, p := range c.ParameterList {
		if string(p.Name) == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func uniqueNames[T any](name func(T) Identifier) validation.RuleFunc {
	return func(value interface{}) error {
		items, _ := value.([]T)
		seen := make(map[Identifier]struct{}, len(items))
		for _, item := range items {
			n := name(item)
			if _, ok := seen[n]; ok {
				return fmt.Errorf("duplicate name %q", n)
			}
			seen[n] = struct{}{}
		}
		return nil
	}
}

// Collection groups families, e.g. Benchmarks.
type Collection struct {
	doctree.Meta
	Slug      Slug          `json:"slug"`
	Title     string        `json:"title"`
	About     string        `json:"about"`
	Thumbnail doctree.Asset `json:"thumbnail"`
}

func (c Collection) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Slug, validation.Required),
		validation.Field(&c.Title, validation.Required),
	)
}

// FeatureType distinguishes data features from samples.
type FeatureType string

const (
	FeatureData    FeatureType = "DATA"
	FeatureSamples FeatureType = "SAMPLES"
)

// Feature is a content section of a family page.
type Feature struct {
	doctree.Meta
	Slug    Slug                  `json:"slug"`
	Title   string                `json:"title"`
	Type    FeatureType           `json:"type"`
	Content doctree.Ref[Markdown] `json:"content"`
}

// UnmarshalJSON defaults Type to DATA.
func (f *Feature) UnmarshalJSON(data []byte) error {
	type plain Feature
	p := plain{Type: FeatureData}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Feature(p)
	return nil
}

func (f Feature) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Slug, validation.Required),
		validation.Field(&f.Title, validation.Required),
		validation.Field(&f.Type, validation.In(FeatureData, FeatureSamples)),
		validation.Field(&f.Content, requiredRef),
	)
}

// FamilyMeta is the extended metadata of a family.
type FamilyMeta struct {
	doctree.Meta
	Abstract               *doctree.Ref[Markdown] `json:"abstract,omitempty"`
	Authors                []Author               `json:"authors"`
	BasedOnPapers          bool                   `json:"basedOnPapers"`
	Citation               doctree.Ref[Bibtex]    `json:"citation"`
	Changelog              []string               `json:"changelog"`
	Description            string                 `json:"description"`
	License                string                 `json:"license"`
	DateOfLastModification Date                   `json:"dateOfLastModification"`
	DateOfPublication      Date                   `json:"dateOfPublication"`
	SourceCodeURL          string                 `json:"sourceCodeUrl,omitempty"`
	Tags                   []string               `json:"tags"`
	Title                  string                 `json:"title"`
	UsingThisDataset       doctree.Ref[Markdown]  `json:"usingThisDataset"`
	HeroImage              *doctree.Asset         `json:"heroImage,omitempty"`
	Thumbnail              *doctree.Asset         `json:"thumbnail,omitempty"`
	Extra                  map[string]any         `json:"extra,omitempty"`
}

func (m FamilyMeta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Authors, validation.Required),
		validation.Field(&m.Citation, requiredRef, refValue[Bibtex]()),
		validation.Field(&m.Description, validation.Required),
		validation.Field(&m.License, validation.Required),
		validation.Field(&m.DateOfLastModification, requiredDate),
		validation.Field(&m.DateOfPublication, requiredDate),
		validation.Field(&m.SourceCodeURL, is.URL),
		validation.Field(&m.Title, validation.Required),
		validation.Field(&m.UsingThisDataset, requiredRef),
	)
}

// ParameterNode is one level of the parameter defaults tree. A nil child
// marks a leaf value.
type ParameterNode struct {
	Default *string                   `json:"default,omitempty"`
	Next    map[string]*ParameterNode `json:"next"`
}

// Family is a dataset family: the root document of every dataset.json.
type Family struct {
	doctree.Meta
	Slug          Slug                     `json:"slug"`
	Class         doctree.Ref[Class]       `json:"class"`
	Collection    *doctree.Ref[Collection] `json:"collection,omitempty"`
	Data          []Dataset                `json:"data"`
	DownloadName  string                   `json:"downloadName"`
	Features      []Feature                `json:"features"`
	Metadata      doctree.Ref[FamilyMeta]  `json:"meta"`
	ParameterTree *ParameterNode           `json:"parameterTree,omitempty"`
	Extra         map[string]any           `json:"extra,omitempty"`
}

func (f Family) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Slug, validation.Required),
		validation.Field(&f.Class, requiredRef),
		validation.Field(&f.DownloadName, validation.Required),
		validation.Field(&f.Metadata, requiredRef),
	)
}
