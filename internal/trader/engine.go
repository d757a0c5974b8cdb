package trader

import (
	"context"
	"fmt"
	"time"

	"deposit-sweeper-go/internal/binance"
	"deposit-sweeper-go/internal/config"
	"deposit-sweeper-go/internal/models"
	"deposit-sweeper-go/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine is the supervisory loop that repeatedly runs the deposit scout.
// A failing cycle is logged and the loop continues; only context cancellation
// stops it.
type Engine struct {
	UUID      string
	StartTime time.Time

	logger     *zap.Logger
	cfg        *config.Config
	restClient binance.RestClientInterface
	db         *gorm.DB
	notifier   notify.Notifier
	policy     RetryPolicy
}

// NewEngine creates a new sweeping engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, restClient binance.RestClientInterface, db *gorm.DB, notifier notify.Notifier) *Engine {
	return &Engine{
		UUID:       uuid.NewString(),
		StartTime:  time.Now(),
		logger:     logger,
		cfg:        cfg,
		restClient: restClient,
		db:         db,
		notifier:   notifier,
		policy:     DefaultRetryPolicy(cfg.Trading.SellMaxAttempts),
	}
}

// Context returns the collaborator bundle handed to the scout and sell protocol.
func (e *Engine) Context() Context {
	return Context{
		Logger:     e.logger,
		Cfg:        e.cfg,
		RestClient: e.restClient,
		DB:         e.db,
		Notifier:   e.notifier,
	}
}

// Run starts the engine's main loop and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Initializing sweeping engine...")
	if err := e.initialize(); err != nil {
		e.logger.Fatal("Failed to initialize engine", zap.Error(err))
	}
	e.logger.Info("Engine initialized successfully.")
	e.notifier.Send(notify.Text("Started"))

	interval := time.Duration(e.cfg.Trading.ScoutInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting scout loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping sweeping engine...")
			return
		case <-ticker.C:
			// Errors are the loop's problem to report, never to die from.
			if err := Scout(ctx, e.Context(), e.policy); err != nil {
				e.logger.Error("Scout failed", zap.Error(err))
			}
		}
	}
}

// initialize verifies exchange connectivity and the supported-asset set.
func (e *Engine) initialize() error {
	serverTime, err := e.restClient.GetServerTime()
	if err != nil {
		return fmt.Errorf("could not reach exchange: %w", err)
	}
	e.logger.Info("Exchange reachable", zap.Int64("server_time", serverTime))

	var count int64
	if err := e.db.Model(&models.Asset{}).Where("enabled = ? AND stable = ?", true, false).Count(&count).Error; err != nil {
		return fmt.Errorf("could not count supported assets: %w", err)
	}
	if count == 0 {
		e.logger.Warn("No sellable assets configured, scout will never find candidates")
	}
	e.logger.Info("Supported asset set loaded",
		zap.Int64("sellable_assets", count),
		zap.String("quote_asset", e.cfg.Trading.QuoteAsset),
		zap.Bool("execute_sells", e.cfg.Trading.ExecuteSells),
	)
	return nil
}
