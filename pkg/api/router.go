// Package api is the HTTP surface of the site backend: contact intake,
// attachment upload URLs, page content, the sitemap, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"altiora-site/pkg/contact"
	"altiora-site/pkg/db"
	"altiora-site/pkg/domain"
	"altiora-site/pkg/metrics"
	"altiora-site/pkg/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ContactSubmitter accepts contact-form submissions.
type ContactSubmitter interface {
	Submit(ctx context.Context, sub contact.Submission, meta contact.Meta) (*contact.Result, error)
}

// Presigner issues upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, size int64) (*storage.PresignedUpload, error)
}

// KeyMaker derives attachment object keys.
type KeyMaker interface {
	AttachmentKey(senderName, fileName string) string
}

// ContentStore reads page content.
type ContentStore interface {
	Ping(ctx context.Context) error
	FindPage(ctx context.Context, collection, slug string) (*domain.ServicePage, error)
	FindProject(ctx context.Context, slug string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	FindBlogPost(ctx context.Context, slug string) (*domain.BlogPost, error)
	ListBlogPosts(ctx context.Context, limit, skip int64) ([]domain.BlogPost, error)
	ListSlugs(ctx context.Context, collection string) ([]db.SlugEntry, error)
}

// Config holds HTTP-layer settings.
type Config struct {
	SiteURL        string
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Addresses or CIDRs.
	TrustedProxies []string
	ContactLimit   int
	UploadLimit    int
	RateWindow     time.Duration
}

// Deps are the services behind the routes. Presigner and Content may be nil
// when the corresponding backend is not configured.
type Deps struct {
	Contact   ContactSubmitter
	Presigner Presigner
	Keys      KeyMaker
	Content   ContentStore
}

// Server holds route handlers.
type Server struct {
	cfg  Config
	deps Deps
}

// NewServer creates a server. Zero limits fall back to 3 and 10 per 15 minutes.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ContactLimit <= 0 {
		cfg.ContactLimit = 3
	}
	if cfg.UploadLimit <= 0 {
		cfg.UploadLimit = 10
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 15 * time.Minute
	}
	if deps.Keys == nil {
		deps.Keys = storage.NewKeyGenerator()
	}
	return &Server{cfg: cfg, deps: deps}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(realIP(s.cfg.TrustedProxies))
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/services/{pageType}/{slug}", s.handleServicePage)

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)

		r.With(
			originCheck(s.cfg.AllowedOrigins, metrics.ContactSubmissions),
			rateLimit(s.cfg.ContactLimit, s.cfg.RateWindow, metrics.ContactSubmissions),
		).Post("/contact", s.handleContact)
		r.With(
			originCheck(s.cfg.AllowedOrigins, metrics.UploadRejections),
			rateLimit(s.cfg.UploadLimit, s.cfg.RateWindow, metrics.UploadRejections),
		).Post("/contact/upload", s.handleUpload)

		r.Get("/pages/{slug}", s.handleMainPage)
		r.Get("/projects", s.handleListProjects)
		r.Get("/projects/{slug}", s.handleProject)
		r.Get("/blog", s.handleListBlog)
		r.Get("/blog/{slug}", s.handleBlogPost)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
