package trader

import (
	"deposit-sweeper-go/internal/binance"
	"deposit-sweeper-go/internal/config"
	"deposit-sweeper-go/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context bundles the process-wide collaborators. It is constructed once at
// startup and passed explicitly into every component instead of living in
// package-level state.
type Context struct {
	Logger     *zap.Logger
	Cfg        *config.Config
	RestClient binance.RestClientInterface
	DB         *gorm.DB
	Notifier   notify.Notifier
}
