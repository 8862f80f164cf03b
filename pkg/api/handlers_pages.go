package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"altiora-site/pkg/db"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/sitemap"

	"github.com/go-chi/chi/v5"
)

// servicePageTypes maps the URL segment to its collection.
var servicePageTypes = map[string]string{
	"web3":  db.CollectionWeb3Services,
	"ai-ml": db.CollectionAIMLServices,
}

const (
	defaultBlogLimit = 10
	maxBlogLimit     = 50
	// maxBlogPage keeps (page-1)*limit far from overflowing the skip.
	maxBlogPage = 100000
)

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type blogListResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
}

func (s *Server) contentAvailable(w http.ResponseWriter) bool {
	if s.deps.Content == nil {
		writeError(w, http.StatusServiceUnavailable, "Content is temporarily unavailable")
		return false
	}
	return true
}

// lookupFailed writes the response for a failed lookup.
func lookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Msg("content lookup failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) handleServicePage(w http.ResponseWriter, r *http.Request) {
	coll, ok := servicePageTypes[chi.URLParam(r, "pageType")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if !s.contentAvailable(w) {
		return
	}
	page, err := s.deps.Content.FindPage(r.Context(), coll, chi.URLParam(r, "slug"))
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: page})
}

func (s *Server) handleMainPage(w http.ResponseWriter, r *http.Request) {
	if !s.contentAvailable(w) {
		return
	}
	page, err := s.deps.Content.FindPage(r.Context(), db.CollectionMainPages, chi.URLParam(r, "slug"))
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: page})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if !s.contentAvailable(w) {
		return
	}
	projects, err := s.deps.Content.ListProjects(r.Context())
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: projects})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	if !s.contentAvailable(w) {
		return
	}
	p, err := s.deps.Content.FindProject(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: p})
}

func (s *Server) handleListBlog(w http.ResponseWriter, r *http.Request) {
	if !s.contentAvailable(w) {
		return
	}
	limit := queryInt(r, "limit", defaultBlogLimit)
	if limit < 1 {
		limit = defaultBlogLimit
	}
	if limit > maxBlogLimit {
		limit = maxBlogLimit
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxBlogPage {
		writeError(w, http.StatusBadRequest, "page out of range")
		return
	}

	posts, err := s.deps.Content.ListBlogPosts(r.Context(), int64(limit), int64((page-1)*limit))
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blogListResponse{Success: true, Data: posts, Page: page, Limit: limit})
}

func (s *Server) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	if !s.contentAvailable(w) {
		return
	}
	p, err := s.deps.Content.FindBlogPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		lookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: p})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// sitemapSections lists what goes into sitemap.xml and under which path.
var sitemapSections = []struct {
	collection string
	prefix     string
	changeFreq string
	priority   string
}{
	{db.CollectionMainPages, "/", "weekly", "0.9"},
	{db.CollectionWeb3Services, "/services/web3/", "monthly", "0.8"},
	{db.CollectionAIMLServices, "/services/ai-ml/", "monthly", "0.8"},
	{db.CollectionProjects, "/projects/", "monthly", "0.7"},
	{db.CollectionBlogPosts, "/blog/", "weekly", "0.6"},
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	b := sitemap.NewBuilder(s.cfg.SiteURL)
	b.Add("/", time.Time{}, "weekly", "1.0")

	if s.deps.Content != nil {
		for _, sec := range sitemapSections {
			entries, err := s.deps.Content.ListSlugs(r.Context(), sec.collection)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Str("collection", sec.collection).Msg("sitemap section skipped")
				continue
			}
			for _, e := range entries {
				path := sec.prefix + e.Slug
				if sec.collection == db.CollectionMainPages && (e.Slug == "home" || e.Slug == "index") {
					path = "/"
				}
				b.Add(path, e.UpdatedAt, sec.changeFreq, sec.priority)
			}
		}
	}

	body, err := b.Bytes()
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to render sitemap")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}
