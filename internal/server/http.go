package server

import (
	"net/http"

	"ctfd-bot/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// NewHandler assembles the HTTP surface: the query service, metrics and a
// liveness probe, behind request ids and CORS.
func NewHandler(queryServer *QueryServer, reg *prometheus.Registry, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(QueryServicePath, queryServer.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return middleware.RequestID(logger)(c.Handler(mux))
}
