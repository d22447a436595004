package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Intake     IntakeConfig     `yaml:"intake" mapstructure:"intake"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document registry backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the page field-set blob store.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DedupConfig configures the processed-document state file.
type DedupConfig struct {
	StatePath string `yaml:"state_path" mapstructure:"state_path"`
}

// IntakeConfig configures document sources.
type IntakeConfig struct {
	LocalDirs      []string `yaml:"local_dirs" mapstructure:"local_dirs"`
	FTPURLs        []string `yaml:"ftp_urls" mapstructure:"ftp_urls"`
	FTPTimeoutSecs int      `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	TempDir        string   `yaml:"temp_dir" mapstructure:"temp_dir"`
	ValidatePDF    bool     `yaml:"validate_pdf" mapstructure:"validate_pdf"`
}

// FTPTimeout returns the configured FTP dial timeout, defaulting to 30s.
func (c IntakeConfig) FTPTimeout() time.Duration {
	if c.FTPTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FTPTimeoutSecs) * time.Second
}

// OCRConfig configures per-page PDF text extraction.
type OCRConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	MistralKey     string  `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel   string  `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// ExtractConfig configures the structured field extractor.
type ExtractConfig struct {
	AnthropicKey   string  `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxConcurrent  int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ReviewConfig configures the manual-review queue for unassociated pages.
type ReviewConfig struct {
	NotionToken string `yaml:"notion_token" mapstructure:"notion_token"`
	NotionDB    string `yaml:"notion_db" mapstructure:"notion_db"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	WebhookURL                string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs         int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours       int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold      float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	UnassociatedRateThreshold float64 `yaml:"unassociated_rate_threshold" mapstructure:"unassociated_rate_threshold"`
}

// BatchConfig configures batch ingestion.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// ServerConfig configures the read/edit API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "docintake.db")
	v.SetDefault("cache.dir", "page_cache")
	v.SetDefault("dedup.state_path", "processed_documents.json")
	v.SetDefault("intake.temp_dir", "/tmp/docintake")
	v.SetDefault("intake.ftp_timeout_secs", 30)
	v.SetDefault("intake.validate_pdf", true)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("ocr.requests_per_sec", 1)
	v.SetDefault("extract.model", "claude-haiku-4-5-20251001")
	v.SetDefault("extract.max_tokens", 4096)
	v.SetDefault("extract.requests_per_sec", 2)
	v.SetDefault("extract.max_concurrent", 4)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.unassociated_rate_threshold", 0.5)
	v.SetDefault("batch.max_concurrent_documents", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys a command depends on are present.
func (c *Config) Validate(command string) error {
	switch command {
	case "ingest":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required")
		}
		if c.Dedup.StatePath == "" {
			return eris.New("config: dedup.state_path is required")
		}
		if c.OCR.Provider == "mistral" && c.OCR.MistralKey == "" {
			return eris.New("config: ocr.mistral_api_key is required for the mistral provider")
		}
		if c.Extract.AnthropicKey == "" {
			return eris.New("config: extract.anthropic_api_key is required")
		}
	case "serve":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required")
		}
		if c.Cache.Dir == "" {
			return eris.New("config: cache.dir is required")
		}
	case "roster":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
