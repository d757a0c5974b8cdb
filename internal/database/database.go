package database

import (
	"fmt"

	"deposit-sweeper-go/internal/config"
	"deposit-sweeper-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the schema and seeds the supported-asset table from the
// asset list file. A missing asset list is a startup error.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.AutoMigrate(&models.Trade{}, &models.Asset{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	supported, err := config.LoadSupportedAssets(cfg.Trading.AssetListPath)
	if err != nil {
		return err
	}

	stable := make(map[string]struct{}, len(cfg.Trading.StableAssets))
	for _, symbol := range cfg.Trading.StableAssets {
		stable[symbol] = struct{}{}
	}

	// Stable assets belong to the known set too; they are just never sold.
	for symbol := range stable {
		supported = append(supported, symbol)
	}

	for _, symbol := range supported {
		_, isStable := stable[symbol]
		asset := models.Asset{Symbol: symbol, Stable: isStable, Enabled: true}
		if err := db.FirstOrCreate(&asset, models.Asset{Symbol: symbol}).Error; err != nil {
			return fmt.Errorf("failed to populate asset '%s': %w", symbol, err)
		}
	}

	return nil
}
