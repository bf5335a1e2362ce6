package common

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	LLM      LLMConfig     `yaml:"llm"`
	PDF      PDFConfig     `yaml:"pdf"`
	Batch    BatchConfig   `yaml:"batch"`
	Storage  StorageConfig `yaml:"storage"`
	Rates    RatesConfig   `yaml:"rates"`
	Auth     AuthConfig    `yaml:"auth"`
	LogLevel string        `yaml:"log_level"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr     string        `yaml:"http_addr"`
	GRPCAddr     string        `yaml:"grpc_addr"`
	MaxUploadMB  int           `yaml:"max_upload_mb"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LLMConfig holds extraction-service configuration
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // openai | gemini
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Temperature    float32       `yaml:"temperature"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	MaxTextChars   int           `yaml:"max_text_chars"`
}

// PDFConfig holds text extraction configuration
type PDFConfig struct {
	Backends     []string `yaml:"backends"` // tried in order: native | mupdf | poppler
	Pdftotext    string   `yaml:"pdftotext"`
	MinTextChars int      `yaml:"min_text_chars"`
}

// BatchConfig holds batch aggregation limits
type BatchConfig struct {
	MaxFiles      int           `yaml:"max_files"`
	Workers       int           `yaml:"workers"`
	FileTimeout   time.Duration `yaml:"file_timeout"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	RejectInvalid bool          `yaml:"reject_invalid"`
}

// StorageConfig selects and configures the report store
type StorageConfig struct {
	Backend  string         `yaml:"backend"` // local | bolt | minio | sqlite | postgres
	Dir      string         `yaml:"dir"`
	BoltPath string         `yaml:"bolt_path"`
	Database DatabaseConfig `yaml:"database"`
	Minio    MinioConfig    `yaml:"minio"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// MinioConfig holds object store settings
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RatesConfig overrides entries of the built-in exchange-rate table (units per USD).
type RatesConfig struct {
	Overrides map[string]float64 `yaml:"overrides"`
}

// AuthConfig enables the optional bearer-token gate when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// DefaultConfig returns the built-in defaults, before any file or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			GRPCAddr:     ":9090",
			MaxUploadMB:  constants.MaxUploadMBDefault,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			Temperature:    0.3,
			AttemptTimeout: 60 * time.Second,
			MaxAttempts:    3,
			BaseDelay:      time.Second,
			MaxDelay:       10 * time.Second,
			MaxTextChars:   12000,
		},
		PDF: PDFConfig{
			Backends:     []string{"native", "poppler"},
			Pdftotext:    "pdftotext",
			MinTextChars: 1,
		},
		Batch: BatchConfig{
			MaxFiles:     constants.MaxBatchFilesDefault,
			Workers:      4,
			FileTimeout:  3 * time.Minute,
			BatchTimeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:  "local",
			Dir:      "./exports",
			BoltPath: "./exports/reports.db",
			Database: DatabaseConfig{
				MaxConns:        10,
				MinConns:        1,
				MaxConnLifetime: 30 * time.Minute,
				MaxConnIdleTime: 5 * time.Minute,
				DialTimeout:     3 * time.Second,
			},
			Minio: MinioConfig{
				Endpoint: "localhost:9000",
				Bucket:   "invoice-reports",
			},
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE) and then
// from environment variables, which take precedence.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadYAML decodes the file at path on top of cfg.
func LoadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	c.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", c.Server.WriteTimeout)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.AttemptTimeout = getEnvAsDuration("LLM_ATTEMPT_TIMEOUT", c.LLM.AttemptTimeout)
	c.LLM.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.BaseDelay = getEnvAsDuration("LLM_BASE_DELAY", c.LLM.BaseDelay)
	c.LLM.MaxDelay = getEnvAsDuration("LLM_MAX_DELAY", c.LLM.MaxDelay)
	c.LLM.MaxTextChars = getEnvAsInt("LLM_MAX_TEXT_CHARS", c.LLM.MaxTextChars)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	c.PDF.Backends = getEnvAsList("PDF_BACKENDS", c.PDF.Backends)
	c.PDF.Pdftotext = getEnv("PDFTOTEXT_BIN", c.PDF.Pdftotext)
	c.PDF.MinTextChars = getEnvAsInt("PDF_MIN_TEXT_CHARS", c.PDF.MinTextChars)

	c.Batch.MaxFiles = getEnvAsInt("BATCH_MAX_FILES", c.Batch.MaxFiles)
	c.Batch.Workers = getEnvAsInt("BATCH_WORKERS", c.Batch.Workers)
	c.Batch.FileTimeout = getEnvAsDuration("BATCH_FILE_TIMEOUT", c.Batch.FileTimeout)
	c.Batch.BatchTimeout = getEnvAsDuration("BATCH_TIMEOUT", c.Batch.BatchTimeout)
	c.Batch.RejectInvalid = getEnvAsBool("BATCH_REJECT_INVALID", c.Batch.RejectInvalid)

	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.Dir = getEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.BoltPath = getEnv("STORAGE_BOLT_PATH", c.Storage.BoltPath)
	c.Storage.Database.DSN = getEnv("DB_URL", c.Storage.Database.DSN)
	c.Storage.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Storage.Database.MaxConns)
	c.Storage.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Storage.Database.MinConns)
	c.Storage.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Storage.Database.MaxConnLifetime)
	c.Storage.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Storage.Database.MaxConnIdleTime)
	c.Storage.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Storage.Database.DialTimeout)
	c.Storage.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Minio.Endpoint)
	c.Storage.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.Minio.AccessKey)
	c.Storage.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.Minio.SecretKey)
	c.Storage.Minio.Bucket = getEnv("MINIO_BUCKET", c.Storage.Minio.Bucket)
	c.Storage.Minio.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.Storage.Minio.UseSSL)

	if overrides := os.Getenv("RATES_OVERRIDES"); overrides != "" {
		if c.Rates.Overrides == nil {
			c.Rates.Overrides = map[string]float64{}
		}
		// EUR=0.93,GBP=0.80
		for _, pair := range strings.Split(overrides, ",") {
			code, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && f > 0 {
				c.Rates.Overrides[strings.ToUpper(strings.TrimSpace(code))] = f
			}
		}
	}

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("AUTH_JWT_ISSUER", c.Auth.Issuer)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("LLM_PROVIDER %q is not one of openai | gemini", c.LLM.Provider), ErrInvalidInput)
	}
	for _, b := range c.PDF.Backends {
		switch b {
		case "native", "mupdf", "poppler":
		default:
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("PDF_BACKENDS entry %q is not one of native | mupdf | poppler", b), ErrInvalidInput)
		}
	}
	if len(c.PDF.Backends) == 0 {
		return NewAppError("CONFIG_ERROR", "PDF_BACKENDS must name at least one backend", ErrInvalidInput)
	}
	if c.Batch.MaxFiles <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_MAX_FILES must be positive", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts <= 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_ATTEMPTS must be positive", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "local", "bolt", "minio", "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("STORAGE_BACKEND %q is not supported", c.Storage.Backend), ErrInvalidInput)
	}
	if c.Storage.Backend == "postgres" && c.Storage.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres backend", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}

	codes := make([]string, 0, len(c.Rates.Overrides))
	for code := range c.Rates.Overrides {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	v := NewValidator()
	for _, code := range codes {
		v.Field("RATES_OVERRIDES", code, Required, CurrencyCode)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// RequireLLM checks the settings needed to talk to the extraction service.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY (or OPENAI_API_KEY / GEMINI_API_KEY) is required", ErrInvalidInput)
	}
	return nil
}
