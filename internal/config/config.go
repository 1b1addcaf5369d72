package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram delivery. Alerts are disabled when the token is empty.
	TelegramBotToken string `json:"telegram_bot_token,omitempty"`
	TelegramChatID   int64  `json:"telegram_chat_id,omitempty"`

	DataDir string `json:"data_dir"`

	// Optional credentials for the paid spot price providers.
	MetalPriceAPIKey string `json:"metalprice_api_key,omitempty"`
	GoldAPIToken     string `json:"goldapi_token,omitempty"`

	// Charge model. Making charges are keyed "coin_24K", "jewellery_22K", ...
	MakingCharges       map[string]float64 `json:"making_charges,omitempty"`
	GSTPercent          float64            `json:"gst_percent"`
	JewelleryPremium10g float64            `json:"jewellery_premium_10g"`
	DiscountFloor       float64            `json:"discount_floor"`

	// Deal admission and ranking.
	MinDiscountPercent float64            `json:"min_discount_percent"`
	MinWeightGrams     float64            `json:"min_weight_grams"`
	PriceFloor         float64            `json:"price_floor"`
	MaxPricePerGram    map[string]float64 `json:"max_price_per_gram,omitempty"`
	MaxDeals           int                `json:"max_deals"`
	RankOrder          string             `json:"rank_order"`

	CacheTTLSeconds     int `json:"cache_ttl_seconds"`
	ScanIntervalMinutes int `json:"scan_interval_minutes"`
	Workers             int `json:"workers"`

	APIPort     string `json:"api_port"`
	MetricsPort string `json:"metrics_port"`

	Debug bool `json:"debug,omitempty"`
}

func DefaultConfigPath() string {
	if v := os.Getenv("GDF_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

func DefaultDataDir() string {
	if v := os.Getenv("GDF_DATA_DIR"); v != "" {
		return v
	}
	return "data"
}

// Load reads the optional JSON config file, then applies .env / environment
// overrides and defaults. Malformed configuration is the only fatal error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigPath()
	}

	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config json: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if v := os.Getenv("METALPRICE_API_KEY"); v != "" {
		cfg.MetalPriceAPIKey = v
	}
	if v := os.Getenv("GOLDAPI_TOKEN"); v != "" {
		cfg.GoldAPIToken = v
	}
	if v := os.Getenv("GDF_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GDF_DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}

	cfg.applyDefaults()

	if cfg.RankOrder != "asc" && cfg.RankOrder != "desc" {
		return Config{}, fmt.Errorf("rank_order must be asc or desc, got %q", cfg.RankOrder)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.DataDir = filepath.Clean(c.DataDir)

	if c.MakingCharges == nil {
		c.MakingCharges = map[string]float64{}
	}
	if c.JewelleryPremium10g == 0 {
		c.JewelleryPremium10g = 1200
	}
	if c.DiscountFloor == 0 {
		c.DiscountFloor = -5
	}
	if c.MinDiscountPercent == 0 {
		c.MinDiscountPercent = -1
	}
	if c.MinWeightGrams == 0 {
		c.MinWeightGrams = 0.5
	}
	if c.PriceFloor == 0 {
		c.PriceFloor = 1000
	}
	if c.MaxPricePerGram == nil {
		c.MaxPricePerGram = map[string]float64{
			"24K":     18000,
			"22K":     17000,
			"18K":     16000,
			"14K":     15000,
			"default": 14000,
		}
	}
	if c.MaxDeals == 0 {
		c.MaxDeals = 4
	}
	if c.RankOrder == "" {
		c.RankOrder = "asc"
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 300
	}
	if c.ScanIntervalMinutes == 0 {
		c.ScanIntervalMinutes = 60
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.APIPort == "" {
		c.APIPort = "8000"
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "9090"
	}
}

// CachePath is the bullion snapshot file inside the data dir.
func (c Config) CachePath() string { return filepath.Join(c.DataDir, "bullion_cache.json") }

// StorePath is the scan history database inside the data dir.
func (c Config) StorePath() string { return filepath.Join(c.DataDir, "scans.db") }
