package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dealposter/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes. metrics may be nil.
func NewRouter(h *Handler, auth *middleware.AuthMiddleware, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Report routes
	mux.Handle("POST /api/v1/reports/run", auth.Authenticate(http.HandlerFunc(h.RunCommand)))
	mux.Handle("POST /api/v1/reports/broadcast", auth.Authenticate(http.HandlerFunc(h.Broadcast)))
	mux.Handle("GET /api/v1/reports/runs", auth.Authenticate(http.HandlerFunc(h.GetRuns)))
	mux.Handle("GET /api/v1/reports/runs/{id}", auth.Authenticate(http.HandlerFunc(h.GetRun)))
	mux.Handle("GET /api/v1/posters/{name}", auth.Authenticate(http.HandlerFunc(h.GetPoster)))

	// Status routes
	mux.Handle("GET /api/v1/status", auth.Authenticate(http.HandlerFunc(h.Status)))

	root := http.NewServeMux()

	// Swagger documentation
	root.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	if metrics != nil {
		root.Handle("GET /metrics", metrics)
	}

	root.Handle("/", middleware.CORS(middleware.JSON(mux)))

	return middleware.Logger(root)
}
