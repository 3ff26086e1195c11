package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading core.
type Config struct {
	// Run mode: "paper" simulates fills locally, "live" trades on Binance.
	Mode string

	// Polling
	PollInterval   time.Duration
	MinimumCapital float64

	// Database
	DBPath string

	// Instrument assignments (YAML, see Instruments)
	InstrumentsPath string

	// Runtime files
	LockPath   string
	StopPath   string
	HealthPath string

	// Score consumption / capital weights
	ScoreFilePath  string
	WeightFilePath string

	// Paper simulation
	PaperSlippage float64
	PaperFeeRate  float64
	PaperBalance  float64

	// Order validation
	MinNotional float64

	// Binance (live mode)
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceTestnet   bool

	// Notifications
	TelegramEnabled bool
	TelegramToken   string
	TelegramChatID  int64

	// Status API
	APIPort string

	// Logging
	LogLevel    string
	LogJSONPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Mode:             getEnv("RUN_MODE", "paper"),
		PollInterval:     time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 180)) * time.Second,
		MinimumCapital:   getEnvFloat("MINIMUM_CAPITAL", 1000),
		DBPath:           getEnv("DB_PATH", "./data/coinhunter.db"),
		InstrumentsPath:  getEnv("INSTRUMENTS_PATH", "./config/instruments.yaml"),
		LockPath:         getEnv("LOCK_PATH", "./runtime/scheduler.lock"),
		StopPath:         getEnv("STOP_PATH", "./runtime/terminate.flag"),
		HealthPath:       getEnv("HEALTH_PATH", "./runtime/healthcheck.json"),
		ScoreFilePath:    getEnv("SCORE_FILE_PATH", ""),
		WeightFilePath:   getEnv("WEIGHT_FILE_PATH", "./data/capital_weights.json"),
		PaperSlippage:    getEnvFloat("PAPER_SLIPPAGE", 0.001),
		PaperFeeRate:     getEnvFloat("PAPER_FEE_RATE", 0.0005),
		PaperBalance:     getEnvFloat("PAPER_INITIAL_BALANCE", 1000000),
		MinNotional:      getEnvFloat("MIN_NOTIONAL", 5000),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		BinanceTestnet:   getEnv("BINANCE_TESTNET", "false") == "true",
		TelegramEnabled:  getEnv("ENABLE_ALERTS", "false") == "true",
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
		APIPort:          getEnv("API_PORT", "8090"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogJSONPath:      getEnv("LOG_JSON_PATH", ""),
	}, nil
}

// IsLive reports whether real orders should be placed.
func (c *Config) IsLive() bool {
	return c.Mode == "live"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
