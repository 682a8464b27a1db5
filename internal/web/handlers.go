package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	deps     *ops.Deps
	renderer *Renderer
}

// HandleState handles GET /state: the current session state rendered from
// markdown. JSON clients get the raw status instead.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	status, err := ops.Status(r.Context(), h.deps)

	if wantsJSON(r) {
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, status)
		return
	}

	data := StatePageData{
		PageData: PageData{
			Title:   "Session state",
			Version: h.renderer.version,
			Nav:     "state",
		},
		Settings: ops.CurrentSettings(h.deps),
	}
	switch {
	case err == nil:
		data.Status = status
		data.RenderedHTML = renderMarkdown(status.Text)
	case errors.Is(err, errors.ErrNotFound):
		// Nothing saved yet; the page says so.
	default:
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "state", data)
}

// HandleDocuments handles GET /documents: a JSON page of stored documents.
func (h *Handlers) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.deps, ops.ListInput{
		Filter: r.URL.Query().Get("filter"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /search?q=: JSON similarity search results.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := ops.Search(r.Context(), h.deps, ops.SearchInput{
		Query:     q.Get("q"),
		Limit:     parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Threshold: parseFloatParam(r, "threshold", 0),
		Filter:    q.Get("filter"),
	})
	if err != nil {
		h.renderer.renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseFloatParam parses a float query parameter with a default value.
func parseFloatParam(r *http.Request, name string, defaultVal float64) float64 {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultVal
	}
	return v
}
