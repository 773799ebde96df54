// Package api serves the latest unified dataset over a read-only JSON API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/report"
)

const (
	defaultPage     = 1
	defaultLimit    = 20
	maxLimit        = 100
	suggestionLimit = 10
	minSuggestQuery = 2
)

// Server answers API requests from the catalog most recently loaded.
type Server struct {
	path        string
	corsOrigins []string
	catalog     atomic.Pointer[Catalog]
	now         func() time.Time
}

// NewServer creates a Server reading the document at path. Call Reload
// before serving.
func NewServer(path string, corsOrigins []string) *Server {
	return &Server{path: path, corsOrigins: corsOrigins, now: time.Now}
}

// Reload reads the document again and swaps it in. On error the previous
// catalog keeps serving.
func (s *Server) Reload() error {
	doc, err := report.ReadDocument(s.path)
	if err != nil {
		return eris.Wrap(err, "api: reload")
	}
	c := NewCatalog(doc)
	s.catalog.Store(c)
	zap.L().Info("catalog loaded",
		zap.String("component", "api"),
		zap.String("path", s.path),
		zap.Int("companies", c.Len()),
	)
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Get("/{id}", s.handleGetCompany)
		})
		r.Get("/involvement/{type}", s.handleInvolvement)
		r.Get("/search/suggestions", s.handleSuggestions)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Pagination describes one page of a result list.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// CompanyPage is a paginated company list.
type CompanyPage struct {
	Companies  []company.Record `json:"companies"`
	Pagination Pagination       `json:"pagination"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c := s.catalog.Load()
	if c == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  "no dataset loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    s.now().UTC(),
		"generated_at": c.generatedAt,
		"companies":    c.Len(),
	})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loaded(w)
	if !ok {
		return
	}
	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, paginate(c.Search(r.URL.Query().Get("search")), page, limit))
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loaded(w)
	if !ok {
		return
	}
	rec, found := c.Get(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "Company not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleInvolvement(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loaded(w)
	if !ok {
		return
	}
	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, paginate(c.ByInvolvement(chi.URLParam(r, "type")), page, limit))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	c, ok := s.loaded(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Stats())
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loaded(w)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if len([]rune(q)) < minSuggestQuery {
		writeJSON(w, http.StatusOK, []Suggestion{})
		return
	}
	writeJSON(w, http.StatusOK, c.Suggest(q, suggestionLimit))
}

func (s *Server) loaded(w http.ResponseWriter) (*Catalog, bool) {
	c := s.catalog.Load()
	if c == nil {
		zap.L().Error("api: no dataset loaded", zap.String("path", s.path))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return c, true
}

// pageParams reads page and limit, falling back to the defaults for
// missing or invalid values and capping limit.
func pageParams(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	page = positiveInt(q.Get("page"), defaultPage)
	limit = min(positiveInt(q.Get("limit"), defaultLimit), maxLimit)
	return page, limit
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func paginate(recs []company.Record, page, limit int) CompanyPage {
	total := len(recs)
	totalPages := (total + limit - 1) / limit

	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	items := recs[start:end]
	if items == nil {
		items = []company.Record{}
	}

	return CompanyPage{
		Companies: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
