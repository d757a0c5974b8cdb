package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"deposit-sweeper-go/internal/models"
	"go.uber.org/zap"
)

// APIServer provides a small HTTP status interface for the engine.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(engine *Engine, logger *zap.Logger) *APIServer {
	addr := fmt.Sprintf(":%d", engine.cfg.Trading.ApiPort)
	server := &http.Server{
		Addr: addr,
	}

	return &APIServer{
		server: server,
		engine: engine,
		logger: logger.Named("api-server"),
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	s.server.Handler = mux

	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	var sweeps int64
	if err := s.engine.db.Model(&models.Trade{}).Count(&sweeps).Error; err != nil {
		s.logger.Error("Failed to count sweeps", zap.Error(err))
		http.Error(w, "Failed to read status", http.StatusInternalServerError)
		return
	}

	status := struct {
		UUID         string `json:"uuid"`
		StartTime    string `json:"start_time"`
		Uptime       string `json:"uptime"`
		QuoteAsset   string `json:"quote_asset"`
		ExecuteSells bool   `json:"execute_sells"`
		Sweeps       int64  `json:"sweeps"`
	}{
		UUID:         s.engine.UUID,
		StartTime:    s.engine.StartTime.Format(time.RFC3339),
		Uptime:       time.Since(s.engine.StartTime).String(),
		QuoteAsset:   s.engine.cfg.Trading.QuoteAsset,
		ExecuteSells: s.engine.cfg.Trading.ExecuteSells,
		Sweeps:       sweeps,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
