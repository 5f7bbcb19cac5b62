package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hetulpatel/hedj/internal/arb"
	"github.com/hetulpatel/hedj/internal/dedup"
	"github.com/hetulpatel/hedj/internal/movement"
)

// Config is the main configuration struct combining all sub-configs.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Books     []string        `mapstructure:"books" validate:"min=1,dive,required"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	TightLine TightLineConfig `mapstructure:"tight_line"`
	Futures   FuturesConfig   `mapstructure:"futures"`
	Movers    MoversConfig    `mapstructure:"movers"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type StorageConfig struct {
	Backend             string `mapstructure:"backend" validate:"oneof=csv sqlite"`
	HistoryPath         string `mapstructure:"history_path" validate:"required"`
	LatestPath          string `mapstructure:"latest_path" validate:"required"`
	SQLitePath          string `mapstructure:"sqlite_path" validate:"required"`
	CleanupDays         int    `mapstructure:"cleanup_days" validate:"gte=1"`
	RecordOpportunities bool   `mapstructure:"record_opportunities"`
}

type ProviderConfig struct {
	Type         string        `mapstructure:"type" validate:"oneof=inbox kafka"`
	InboxPath    string        `mapstructure:"inbox_path" validate:"required_if=Type inbox"`
	ConsumeInbox bool          `mapstructure:"consume_inbox"`
	Sports       []string      `mapstructure:"sports"`
	KafkaTopic   string        `mapstructure:"kafka_topic" validate:"required_if=Type kafka"`
	KafkaGroup   string        `mapstructure:"kafka_group" validate:"required_if=Type kafka"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

type ArbitrageConfig struct {
	MinROIPercent float64 `mapstructure:"min_roi_percent" validate:"gte=0"`
	MaxROIPercent float64 `mapstructure:"max_roi_percent" validate:"gtefield=MinROIPercent"`
	TotalStake    float64 `mapstructure:"total_stake" validate:"gt=0"`
}

type TightLineConfig struct {
	MaxImpliedSum float64       `mapstructure:"max_implied_sum" validate:"gt=1"`
	Window        time.Duration `mapstructure:"window" validate:"gt=0"`
}

type FuturesConfig struct {
	MinEdgePercent float64 `mapstructure:"min_edge_percent" validate:"gte=0"`
}

// MoversConfig sets the minimum opening-to-current move reported by the
// movers command.
type MoversConfig struct {
	SpreadPoints   float64 `mapstructure:"spread_points" validate:"gt=0"`
	TotalPoints    float64 `mapstructure:"total_points" validate:"gt=0"`
	MoneylineCents int     `mapstructure:"moneyline_cents" validate:"gt=0"`
}

type DedupConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=file redis"`
	Path      string        `mapstructure:"path" validate:"required_if=Backend file"`
	Retention time.Duration `mapstructure:"retention" validate:"gt=0"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required_if=Enabled true"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (HEDJ_ prefix, highest priority)
// 2. Config file (hedj.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hedj")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hedj")
	}

	v.SetEnvPrefix("HEDJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with no file or environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	cfg.normalize()
	return &cfg
}

func (c *Config) normalize() {
	books := make([]string, 0, len(c.Books))
	for _, b := range c.Books {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			books = append(books, b)
		}
	}
	c.Books = books
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	c.Provider.Type = strings.ToLower(c.Provider.Type)
	c.Dedup.Backend = strings.ToLower(c.Dedup.Backend)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Detector builds the detector thresholds.
func (c *Config) Detector() arb.Config {
	return arb.Config{
		Books:                 arb.NewBookSet(c.Books),
		MinROIPercent:         c.Arbitrage.MinROIPercent,
		MaxROIPercent:         c.Arbitrage.MaxROIPercent,
		TotalStake:            c.Arbitrage.TotalStake,
		TightMaxImpliedSum:    c.TightLine.MaxImpliedSum,
		TightWindow:           c.TightLine.Window,
		FuturesMinEdgePercent: c.Futures.MinEdgePercent,
	}
}

// MoverThresholds builds the significant-movement thresholds.
func (c *Config) MoverThresholds() movement.Thresholds {
	return movement.Thresholds{
		SpreadPoints:   c.Movers.SpreadPoints,
		TotalPoints:    c.Movers.TotalPoints,
		MoneylineCents: c.Movers.MoneylineCents,
	}
}

// CleanupCutoff is the oldest observation time kept by cleanup.
func (c *Config) CleanupCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		days = c.Storage.CleanupDays
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// RedisOptions maps the dedup section onto the Redis store options.
func (c *Config) RedisOptions() dedup.RedisOptions {
	return dedup.RedisOptions{
		Addr:      c.Dedup.Redis.Addr,
		Password:  c.Dedup.Redis.Password,
		DB:        c.Dedup.Redis.DB,
		Prefix:    c.Dedup.Redis.Prefix,
		Retention: c.Dedup.Retention,
	}
}
