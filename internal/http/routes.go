package httpx

import (
	"log/slog"
	"net/http"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/service"
)

// RouterServices holds the dependencies of the HTTP router.
type RouterServices struct {
	Search *service.SearchService
	// Verifier guards the /api routes when set. The health endpoint is
	// always open so load balancers can probe without credentials.
	Verifier TokenVerifier
	HTTP     config.HTTPConfig
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	handlers := &SearchHandlers{Svc: services.Search, Logger: logger}
	registerSearchRoutes(mux, handlers, services.Verifier)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	if services.HTTP.CompressionEnabled {
		handler = Compression(CompressionConfig{
			Level:  services.HTTP.CompressionLevel,
			Logger: logger,
		})(handler)
	}
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	return Recover(logger)(handler)
}

func registerSearchRoutes(mux *http.ServeMux, h *SearchHandlers, verifier TokenVerifier) {
	auth := RequireBearer(verifier)

	mux.Handle("POST /api/searches", auth(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /api/searches/stats", auth(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/searches/{id}/status", auth(http.HandlerFunc(h.Status)))
	mux.Handle("GET /api/searches/{id}/result", auth(http.HandlerFunc(h.Result)))
	mux.Handle("POST /api/searches/{id}/cancel", auth(http.HandlerFunc(h.Cancel)))
}
