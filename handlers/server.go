package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"gramload.app/cloud/internal/metrics"
	"gramload.app/cloud/internal/payment"
	"gramload.app/cloud/internal/quality"
	"gramload.app/cloud/internal/ratelimit"
	"gramload.app/cloud/internal/version"
	"gramload.app/cloud/storage"
)

type Server struct {
	Router  chi.Router
	Storage storage.Storage
	Limiter ratelimit.Limiter
	Quality *quality.Filter
	Settler *payment.Processor

	// callbackGuard sheds gateway floods before any parsing happens; it is
	// a burst guard on the endpoint, not the per-identity download limit.
	callbackGuard *rate.Limiter
}

func NewHTTPServer(db storage.Storage, limiter ratelimit.Limiter, filter *quality.Filter, settler *payment.Processor) *Server {
	s := &Server{
		Storage:       db,
		Limiter:       limiter,
		Quality:       filter,
		Settler:       settler,
		callbackGuard: rate.NewLimiter(rate.Limit(50), 100),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/v1/downloads/authorize", s.AuthorizeDownload)
	r.Post("/api/v1/payments/callback", s.PaymentCallback)

	s.Router = r
	return s
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version.Resolve(),
		Timestamp: time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
