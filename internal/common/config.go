package common

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Queue     QueueConfig     `toml:"queue"`
	Store     StoreConfig     `toml:"store"`
	Redis     RedisConfig     `toml:"redis"`
	Database  DatabaseConfig  `toml:"database"`
	OCR       OCRConfig       `toml:"ocr"`
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `toml:"http_addr" env:"HTTP_ADDR"`
	GRPCAddr        string        `toml:"grpc_addr" env:"GRPC_ADDR"`
	MaxUploadMB     int64         `toml:"max_upload_mb" env:"MAX_UPLOAD_MB"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// QueueConfig selects the broker and sizes the worker pool.
type QueueConfig struct {
	Backend    string        `toml:"backend" env:"QUEUE_BACKEND"` // memory | redis
	Workers    int           `toml:"workers" env:"QUEUE_WORKERS"`
	Size       int           `toml:"size" env:"QUEUE_SIZE"`
	JobTimeout time.Duration `toml:"job_timeout" env:"JOB_TIMEOUT"`
	RedisKey   string        `toml:"redis_key" env:"QUEUE_REDIS_KEY"`
}

// StoreConfig selects where status records live and how long they are kept.
type StoreConfig struct {
	Backend       string        `toml:"backend" env:"STORE_BACKEND"` // memory | redis | sqlite | postgres | badger
	Path          string        `toml:"path" env:"STORE_PATH"`       // sqlite file or badger dir
	Retention     time.Duration `toml:"retention" env:"STORE_RETENTION"`
	SweepSchedule string        `toml:"sweep_schedule" env:"STORE_SWEEP_SCHEDULE"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" env:"REDIS_ADDR"`
	Password string `toml:"password" env:"REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"REDIS_DB"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `toml:"dsn" env:"DB_URL"`
	MaxConns        int32         `toml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns        int32         `toml:"min_conns" env:"DB_MIN_CONNS"`
	MaxConnLifetime time.Duration `toml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `toml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME"`
	DialTimeout     time.Duration `toml:"dial_timeout" env:"DB_DIAL_TIMEOUT"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Lang         string `toml:"lang" env:"OCR_LANG"`
	DPI          int    `toml:"dpi" env:"OCR_DPI"`
	PSM          int    `toml:"psm" env:"OCR_PSM"`
	MinTextChars int    `toml:"min_text_chars" env:"OCR_MIN_TEXT_CHARS"`
	MaxPages     int    `toml:"max_pages" env:"OCR_MAX_PAGES"`
	TessdataDir  string `toml:"tessdata_dir" env:"TESSDATA_PREFIX"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider         string        `toml:"provider" env:"LLM_PROVIDER"` // openai | ollama | gemini | claude
	Model            string        `toml:"model" env:"LLM_MODEL"`       // empty: provider default
	BaseURL          string        `toml:"base_url" env:"LLM_BASE_URL"` // empty: provider default
	APIKey           string        `toml:"api_key" env:"LLM_API_KEY"`
	Temperature      float32       `toml:"temperature" env:"LLM_TEMPERATURE"`
	Timeout          time.Duration `toml:"timeout" env:"LLM_TIMEOUT"`
	MaxInputChars    int           `toml:"max_input_chars" env:"LLM_MAX_INPUT_CHARS"`
	ResponseLanguage string        `toml:"response_language" env:"LLM_RESPONSE_LANGUAGE"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider" env:"EMBEDDING_PROVIDER"` // gemini | hashing
	Model      string `toml:"model" env:"EMBEDDING_MODEL"`
	APIKey     string `toml:"api_key" env:"EMBEDDING_API_KEY"`
	Dimensions int32  `toml:"dimensions" env:"EMBEDDING_DIM"`
}

type WorkspaceConfig struct {
	Dir string `toml:"dir" env:"WORKSPACE_DIR"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

// DefaultConfig returns the built-in defaults every other source overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8000",
			GRPCAddr:        ":8081",
			MaxUploadMB:     32,
			ShutdownTimeout: 30 * time.Second,
		},
		Queue: QueueConfig{
			Backend:    "memory",
			Workers:    4,
			Size:       256,
			JobTimeout: 3 * time.Minute,
			RedisKey:   "docjobs:queue",
		},
		Store: StoreConfig{
			Backend:       "memory",
			Retention:     24 * time.Hour,
			SweepSchedule: "@every 10m",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		OCR: OCRConfig{
			Lang:         "vie",
			DPI:          300,
			PSM:          6,
			MinTextChars: 50,
		},
		LLM: LLMConfig{
			Provider:         "ollama",
			Temperature:      0.2,
			Timeout:          2 * time.Minute,
			MaxInputChars:    15000,
			ResponseLanguage: "Vietnamese",
		},
		Embedding: EmbeddingConfig{
			Provider:   "hashing",
			Model:      "text-embedding-004",
			Dimensions: 768,
		},
		Workspace: WorkspaceConfig{
			Dir: os.TempDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers defaults, an optional TOML file and the environment.
// An empty path falls back to DOCJOBS_CONFIG; no file at all is fine.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("DOCJOBS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var errConfig = errors.New("invalid config")

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: queue backend %q (want memory|redis)", errConfig, c.Queue.Backend)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("%w: QUEUE_WORKERS must be positive", errConfig)
	}
	switch c.Store.Backend {
	case "memory", "redis":
	case "sqlite", "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: STORE_PATH is required for the %s store", errConfig, c.Store.Backend)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: DB_URL is required for the postgres store", errConfig)
		}
	default:
		return fmt.Errorf("%w: store backend %q", errConfig, c.Store.Backend)
	}
	switch c.LLM.Provider {
	case "ollama":
	case "openai", "gemini", "claude":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: LLM_API_KEY is required for %s", errConfig, c.LLM.Provider)
		}
	default:
		return fmt.Errorf("%w: llm provider %q", errConfig, c.LLM.Provider)
	}
	if c.LLM.MaxInputChars <= 0 {
		return fmt.Errorf("%w: LLM_MAX_INPUT_CHARS must be positive", errConfig)
	}
	switch c.Embedding.Provider {
	case "hashing", "gemini":
	default:
		return fmt.Errorf("%w: embedding provider %q", errConfig, c.Embedding.Provider)
	}
	return nil
}
