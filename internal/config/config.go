package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Backtest Backtest `mapstructure:"backtest"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Binance holds the configuration for the Binance market-data API.
type Binance struct {
	BaseURL        string  `mapstructure:"base_url"` // overrides testnet/production selection when set
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Backtest holds default run parameters applied when the caller omits
// them. Percentages are fractions (0.02 = 2%).
type Backtest struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	RiskPerTrade   float64 `mapstructure:"risk_per_trade"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"`
	FeeRate        float64 `mapstructure:"fee_rate"`
	MinConfidence  float64 `mapstructure:"min_confidence"`
	Interval       string  `mapstructure:"interval"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the results database.
type Database struct {
	DSN string `mapstructure:"dsn"`
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
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("backtest.initial_balance", 10000.0)
	viper.SetDefault("backtest.risk_per_trade", 0.02)
	viper.SetDefault("backtest.stop_loss_pct", 0.02)
	viper.SetDefault("backtest.take_profit_pct", 0.04)
	viper.SetDefault("backtest.interval", "1h")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
