package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Trading pair
	LongSymbol  string // base asset, e.g. "BTC"
	ShortSymbol string // quote asset, e.g. "USDT"

	// Position sizing and targets
	MaxUSDPosition decimal.Decimal
	GainTargetPct  decimal.Decimal
	StopLossPct    decimal.Decimal

	// Mode
	Trading         bool // false = paper fills, no real orders
	DisableStopLoss bool
	Debug           bool

	// Fill confirmation polling
	TradeCheckInterval time.Duration
	MaxTradeChecks     int
	OrderBookLevels    int

	// Binance credentials
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceBaseURL   string // optional testnet/mirror override

	// EMA stop (optional alternative to the percent stop)
	UseEMAStop bool
	EMAPeriod  int
	EMAHistory int
	EMAMaxLoss decimal.Decimal

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LongSymbol:  getEnv("LONG_SYMBOL", "BTC"),
		ShortSymbol: getEnv("SHORT_SYMBOL", "USDT"),

		MaxUSDPosition: getEnvDecimal("MAX_USD_POS", decimal.NewFromInt(100)),
		GainTargetPct:  getEnvDecimal("GAIN_TARGET_PCT", decimal.NewFromFloat(3.0)),
		StopLossPct:    getEnvDecimal("STOP_LOSS_PCT", decimal.NewFromFloat(2.0)),

		Trading:         getEnvBool("TRADING", false),
		DisableStopLoss: getEnvBool("DISABLE_STOP_LOSS", false),
		Debug:           getEnvBool("DEBUG", false),

		TradeCheckInterval: getEnvDuration("TRADE_CHECK_INTERVAL", time.Second),
		MaxTradeChecks:     getEnvInt("MAX_TRADE_CHECKS", 10),
		OrderBookLevels:    getEnvInt("ORDERBOOK_LEVELS", 20),

		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		BinanceBaseURL:   os.Getenv("BINANCE_BASE_URL"),

		UseEMAStop: getEnvBool("USE_EMA_STOP", false),
		EMAPeriod:  getEnvInt("EMA_PERIOD", 100),
		EMAHistory: getEnvInt("EMA_HISTORY", 500),
		EMAMaxLoss: getEnvDecimal("EMA_MAX_LOSS_PCT", decimal.NewFromFloat(2.0)),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/stratbot.db"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	// Validate required fields
	if cfg.LongSymbol == "" || cfg.ShortSymbol == "" {
		return nil, fmt.Errorf("LONG_SYMBOL and SHORT_SYMBOL are required")
	}
	if !cfg.MaxUSDPosition.IsPositive() {
		return nil, fmt.Errorf("MAX_USD_POS must be positive, got %s", cfg.MaxUSDPosition)
	}
	if !cfg.GainTargetPct.IsPositive() {
		return nil, fmt.Errorf("GAIN_TARGET_PCT must be positive, got %s", cfg.GainTargetPct)
	}
	if !cfg.DisableStopLoss && !cfg.StopLossPct.IsPositive() {
		return nil, fmt.Errorf("STOP_LOSS_PCT must be positive, got %s", cfg.StopLossPct)
	}
	if cfg.Trading && (cfg.BinanceAPIKey == "" || cfg.BinanceSecretKey == "") {
		return nil, fmt.Errorf("BINANCE_API_KEY and BINANCE_SECRET_KEY are required when TRADING=true")
	}

	return cfg, nil
}

// Symbol returns the venue pair string, e.g. "BTCUSDT".
func (c *Config) Symbol() string {
	return c.LongSymbol + c.ShortSymbol
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
