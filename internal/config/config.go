package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Telegram Telegram `mapstructure:"telegram"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Telegram holds the configuration for the notification bot.
// An empty token disables notifications entirely.
type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the deposit-sweeping logic.
type Trading struct {
	// QuoteAsset is the stable asset deposits are liquidated into.
	QuoteAsset string `mapstructure:"quote_asset"`
	// StableAssets are never selected for liquidation.
	StableAssets []string `mapstructure:"stable_assets"`
	// AssetListPath points to a newline-delimited list of supported asset symbols.
	AssetListPath string `mapstructure:"asset_list"`
	// ExecuteSells controls whether detected candidates are actually sold.
	// When false the scout only logs and notifies them.
	ExecuteSells       bool `mapstructure:"execute_sells"`
	ScoutInterval      int  `mapstructure:"scout_interval"`       // seconds between scout cycles
	DepositWindowHours int  `mapstructure:"deposit_window_hours"` // trailing deposit window
	SettleDelay        int  `mapstructure:"settle_delay"`         // seconds to wait before the first order status check
	PollInterval       int  `mapstructure:"poll_interval"`        // seconds between order/balance polls
	SellMaxAttempts    int  `mapstructure:"sell_max_attempts"`    // order placement retry budget
	PollMaxAttempts    int  `mapstructure:"poll_max_attempts"`    // per-phase polling budget
	ApiPort            int  `mapstructure:"api_port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("trading.quote_asset", "USDT")
	viper.SetDefault("trading.stable_assets", []string{"USDT", "BUSD"})
	viper.SetDefault("trading.asset_list", "./configs/supported_assets")
	viper.SetDefault("trading.execute_sells", false)
	viper.SetDefault("trading.scout_interval", 5)
	viper.SetDefault("trading.deposit_window_hours", 24)
	viper.SetDefault("trading.settle_delay", 5)
	viper.SetDefault("trading.poll_interval", 1)
	viper.SetDefault("trading.sell_max_attempts", 20)
	viper.SetDefault("trading.poll_max_attempts", 120)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

// LoadSupportedAssets reads the newline-delimited asset list file.
// Symbols are case-insensitive in the file and normalized to uppercase.
func LoadSupportedAssets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read supported asset list %s: %w", path, err)
	}

	var assets []string
	for _, line := range strings.Split(string(data), "\n") {
		symbol := strings.ToUpper(strings.TrimSpace(line))
		if symbol == "" {
			continue
		}
		assets = append(assets, symbol)
	}
	return assets, nil
}
