// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"loyalty-bot/pkg/logger"
)

// Server hosts the liveness probes for the process supervisor and the
// POS purchase/redeem API.
type Server struct {
	server *http.Server
	logger *logger.Logger
}

func New(port string, pos *POSHandler, logger *logger.Logger) *Server {
	mux := http.NewServeMux()

	// Liveness probes. The supervisor only checks for a 200.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/pos/purchase", pos.HandlePurchase)
	mux.HandleFunc("/pos/redeem", pos.HandleRedeem)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
