package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Status es lo que expone /status.
type Status struct {
	Mode      string          `json:"mode"`
	Bankroll  decimal.Decimal `json:"bankroll"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	TotalBets int             `json:"total_bets"`
	Wins      int             `json:"wins"`
	Losses    int             `json:"losses"`
	Pending   int             `json:"pending"`
	Skipped   int             `json:"skipped"`
	Rejected  int             `json:"rejected"`

	// Partidos con apuesta colocada cuyo resultado no se pudo resolver:
	// su stake sigue reservado hasta un SettleMatch externo.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Server sirve /metrics, /healthz y /status.
type Server struct {
	srv *http.Server
}

// NewServer construye el servidor. No escucha hasta Start.
func NewServer(addr string, gatherer prometheus.Gatherer, status func() Status) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(gatherer, status),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// NewRouter arma el router chi con recover, timeout y CORS abierto para
// dashboards de solo lectura.
func NewRouter(gatherer prometheus.Gatherer, status func() Status) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			slog.Warn("metrics: error encoding status", "err", err)
		}
	})
	return r
}

// Start escucha en background. Los errores distintos de un cierre ordenado se loguean.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics: listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics: server stopped", "err", err)
		}
	}()
}

// Shutdown cierra el servidor esperando a las peticiones en curso.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
