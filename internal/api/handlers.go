package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/reftree/internal/apperr"
	"github.com/starford/reftree/internal/builder"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/index"
	"github.com/starford/reftree/internal/metrics"
	"github.com/starford/reftree/internal/schemas"
)

// Handler holds API route handlers.
type Handler struct {
	db       index.Index
	root     string
	treeOpts []doctree.Option
	build    builder.Options
	metrics  *metrics.Metrics

	// Only one build writes the build directory at a time.
	building sync.Mutex
}

// NewHandler creates a new Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		db:       cfg.Index,
		root:     cfg.ContentRoot,
		treeOpts: cfg.TreeOptions,
		build:    cfg.Build,
		metrics:  cfg.Metrics,
	}
}

// docPath extracts the tree path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. qchem%2Fh2%2Fdataset.json).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents with optional pagination and type filter
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			type	query		string	false	"Filter by document type"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.db.ListDocuments(q.Get("type"), limit, offset)
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]DocumentListItem, 0, len(rows))
	for _, d := range rows {
		items = append(items, listItem(d))
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Load a document from the content tree
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Tree path"
//	@Param			mode	query		string	false	"Resolution mode"	Enums(shallow, deep)
//	@Param			format	query		string	false	"Dump format"		Enums(pointers, inline)
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	mode, format, err := dumpOptions(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	row, err := h.db.GetDocument(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get document failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	// Every request walks its own tree; trees are not safe for concurrent walks.
	tree, err := doctree.New(h.root, h.treeOpts...)
	if err != nil {
		slog.Error("open tree failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	v, err := schemas.Load(tree, row.Type, path, mode)
	if err != nil {
		writeLoadError(w, path, err)
		return
	}
	content, err := doctree.Dump(v, format)
	if err != nil {
		slog.Error("dump document failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentDetail{
		DocumentListItem: listItem(*row),
		Mode:             mode.String(),
		Format:           formatName(format),
		Content:          content,
	})
}

func dumpOptions(q url.Values) (doctree.Mode, doctree.DumpMode, error) {
	mode := doctree.Deep
	switch q.Get("mode") {
	case "", "deep":
	case "shallow":
		mode = doctree.Shallow
	default:
		return 0, 0, fmt.Errorf("%w: mode must be shallow or deep", apperr.ErrInvalid)
	}
	format := doctree.DumpInline
	switch q.Get("format") {
	case "", "inline":
	case "pointers":
		format = doctree.DumpPointers
	default:
		return 0, 0, fmt.Errorf("%w: format must be pointers or inline", apperr.ErrInvalid)
	}
	return mode, format, nil
}

func formatName(f doctree.DumpMode) string {
	if f == doctree.DumpPointers {
		return "pointers"
	}
	return "inline"
}

// writeLoadError maps resolution failures: missing files are 404, content
// that does not satisfy its schema is 422.
func writeLoadError(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, doctree.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, doctree.ErrValidation),
		errors.Is(err, doctree.ErrInvalidReference),
		errors.Is(err, doctree.ErrOutsideTree),
		errors.Is(err, doctree.ErrReferenceCycle):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error("load document failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List references pointing at a document
//	@Tags			references
//	@Produce		json
//	@Param			path	path		string	true	"Tree path"
//	@Success		200		{object}	RefsResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	h.refs(w, r, h.db.Backlinks)
}

// Refs handles GET /api/refs/*.
//
//	@Summary		List references written in a document
//	@Tags			references
//	@Produce		json
//	@Param			path	path		string	true	"Tree path"
//	@Success		200		{object}	RefsResponse
//	@Security		BearerAuth
//	@Router			/refs/{path} [get]
func (h *Handler) Refs(w http.ResponseWriter, r *http.Request) {
	h.refs(w, r, h.db.Refs)
}

func (h *Handler) refs(w http.ResponseWriter, r *http.Request, query func(string) ([]index.RefRow, error)) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	rows, err := query(path)
	if err != nil {
		slog.Error("refs query failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RefsResponse{Refs: refItems(rows)})
}

// Assets handles GET /api/assets.
//
//	@Summary		List assets used in the content tree
//	@Tags			assets
//	@Produce		json
//	@Param			source	query		string	false	"Only assets used by this document"
//	@Success		200		{object}	AssetsResponse
//	@Security		BearerAuth
//	@Router			/assets [get]
func (h *Handler) Assets(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Assets(r.URL.Query().Get("source"))
	if err != nil {
		slog.Error("assets query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, AssetsResponse{Assets: assetItems(rows)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(rows))
	for _, s := range rows {
		results = append(results, SearchResult(s))
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Build handles POST /api/build.
//
//	@Summary		Compile the content tree into the build directory
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	BuildResponse
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/build [post]
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	if h.build.BuildDir == "" {
		writeJSON(w, http.StatusNotFound, errorBody("builds are not configured"))
		return
	}
	if !h.building.TryLock() {
		writeJSON(w, http.StatusConflict, errorBody(apperr.ErrConflict.Error()+": build in progress"))
		return
	}
	defer h.building.Unlock()

	start := time.Now()
	res, err := builder.Compile(r.Context(), h.build)
	if h.metrics != nil {
		families, assets := 0, 0
		if res != nil {
			families, assets = len(res.Manifest.DatasetFamilies), len(res.Manifest.Assets)
		}
		h.metrics.RecordBuild(time.Since(start), families, assets, err)
	}
	if err != nil {
		writeLoadError(w, "", err)
		return
	}

	m := res.Manifest
	writeJSON(w, http.StatusOK, BuildResponse{
		BuildID:     m.BuildID,
		OutputPath:  res.OutputPath,
		Families:    sortedKeys(m.DatasetFamilies),
		Classes:     sortedKeys(m.DatasetClasses),
		Collections: sortedKeys(m.DatasetCollections),
		Assets:      append([]string{}, m.Assets...),
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
