package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/glowcare/storefront/internal/auth"
	"github.com/glowcare/storefront/internal/catalog"
	"github.com/glowcare/storefront/internal/observability"
	"github.com/glowcare/storefront/internal/platform/httpx"
	"github.com/glowcare/storefront/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
	// UploadDir is served read-only under /uploads/.
	UploadDir string
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

type testResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	started := time.Now()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, healthResponse{
			Status:    "OK",
			Message:   "Server is running",
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(started).Seconds(),
		})
	})

	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, testResponse{
			Message: "Backend is working!",
			Endpoints: map[string]string{
				"health":        "/health",
				"products":      "/products",
				"filterOptions": "/products/filters/options",
				"adminLogin":    "/admin/login",
				"adminRegister": "/admin/register",
				"adminProducts": "/admin/products",
			},
		})
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.CatalogHandler != nil {
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/admin/products", params.CatalogHandler.MountAdminRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.UploadDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(params.UploadDir)))
		r.Handle("/uploads/*", staticCacheHandler(fileServer))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Route not found")
	})

	return r
}

// staticCacheHandler serves uploaded files with a one hour browser cache and
// hides directory listings.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Route not found")
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
