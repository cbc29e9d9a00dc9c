package api

import (
	"encoding/json"
	"time"

	"github.com/starford/reftree/internal/index"
)

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path" example:"qchem/h2/dataset.json" validate:"required"`
	Type      string    `json:"type" example:"schemas.Family" validate:"required"`
	Title     string    `json:"title" example:"H2 Molecule"`
	Checksum  string    `json:"checksum" example:"abc123..." validate:"required"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// DocumentDetail is a document loaded from the content tree and dumped
// in the requested mode.
type DocumentDetail struct {
	DocumentListItem
	Mode    string          `json:"mode" example:"deep" validate:"required"`
	Format  string          `json:"format" example:"inline" validate:"required"`
	Content json.RawMessage `json:"content" swaggertype:"object" validate:"required"`
}

// RefItem is one reference edge.
type RefItem struct {
	Source  string `json:"source" example:"qchem/h2/dataset.json" validate:"required"`
	Field   string `json:"field" example:"meta" validate:"required"`
	Pointer string `json:"pointer" example:"meta.json" validate:"required"`
	Target  string `json:"target,omitempty" example:"qchem/h2/meta.json"`
}

// RefsResponse wraps reference edges.
type RefsResponse struct {
	Refs []RefItem `json:"refs" validate:"required"`
}

// AssetItem is one asset used by a document.
type AssetItem struct {
	Source   string `json:"source" example:"qchem/h2/meta.json" validate:"required"`
	Location string `json:"location" example:"images/hero.png" validate:"required"`
	Local    bool   `json:"local"`
	Target   string `json:"target,omitempty" example:"qchem/h2/images/hero.png"`
}

// AssetsResponse wraps asset listings.
type AssetsResponse struct {
	Assets []AssetItem `json:"assets" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"qchem/h2/using.md" validate:"required"`
	Title   string `json:"title" example:"Using this dataset" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// BuildResponse summarizes a finished build.
type BuildResponse struct {
	BuildID     string   `json:"buildId" example:"6f1c..." validate:"required"`
	OutputPath  string   `json:"outputPath" example:"build/datasets-build.json" validate:"required"`
	Families    []string `json:"families" validate:"required"`
	Classes     []string `json:"classes" validate:"required"`
	Collections []string `json:"collections" validate:"required"`
	Assets      []string `json:"assets" validate:"required"`
}

func listItem(d index.DocumentRow) DocumentListItem {
	return DocumentListItem{
		Path:      d.Path,
		Type:      d.Type,
		Title:     d.Title,
		Checksum:  d.Checksum,
		UpdatedAt: d.UpdatedAt,
	}
}

func refItems(rows []index.RefRow) []RefItem {
	out := make([]RefItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, RefItem(r))
	}
	return out
}

func assetItems(rows []index.AssetRow) []AssetItem {
	out := make([]AssetItem, 0, len(rows))
	for _, a := range rows {
		out = append(out, AssetItem(a))
	}
	return out
}
