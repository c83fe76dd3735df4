package common

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ParserLlamaParse = "llamaparse"
	ParserLocal      = "local"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Parser   ParserConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Log      LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCHealthAddr  string // empty disables the gRPC health service
	MaxUploadMB     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ParserConfig holds document-parsing service configuration
type ParserConfig struct {
	Provider     string // "llamaparse" | "local"
	Fallback     bool   // fall back to the local extractor when the remote one fails
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

// OCRConfig holds local text extraction configuration
type OCRConfig struct {
	Pdftotext string
	MaxPages  int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float64
	Timeout         time.Duration
	MaxRetries      int
	LenientOptional bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// QueueConfig holds async worker pool configuration
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" | "text" | "tint"
}

var envBindings = map[string][]string{
	"server.http_addr":        {"HTTP_ADDR"},
	"server.grpc_health_addr": {"GRPC_HEALTH_ADDR"},
	"server.max_upload_mb":    {"MAX_UPLOAD_MB"},
	"server.read_timeout":     {"HTTP_READ_TIMEOUT"},
	"server.write_timeout":    {"HTTP_WRITE_TIMEOUT"},
	"server.shutdown_timeout": {"SHUTDOWN_TIMEOUT"},
	"parser.provider":         {"PARSER_PROVIDER"},
	"parser.fallback":         {"PARSER_FALLBACK"},
	"parser.api_key":          {"LLAMA_CLOUD_API_KEY"},
	"parser.base_url":         {"LLAMA_CLOUD_BASE_URL"},
	"parser.poll_interval":    {"LLAMA_PARSE_POLL_INTERVAL"},
	"parser.timeout":          {"LLAMA_PARSE_TIMEOUT"},
	"ocr.pdftotext":           {"PDFTOTEXT_BIN"},
	"ocr.max_pages":           {"OCR_MAX_PAGES"},
	"llm.model":               {"OPENAI_MODEL"},
	"llm.api_key":             {"OPENAI_API_KEY"},
	"llm.base_url":            {"OPENAI_BASE_URL"},
	"llm.temperature":         {"OPENAI_TEMPERATURE"},
	"llm.timeout":             {"OPENAI_TIMEOUT"},
	"llm.max_retries":         {"OPENAI_MAX_RETRIES"},
	"llm.lenient_optional":    {"LLM_LENIENT"},
	"database.dsn":            {"DB_URL"},
	"database.max_conns":      {"DB_MAX_CONNS"},
	"database.max_conn_life":  {"DB_MAX_CONN_LIFETIME"},
	"database.dial_timeout":   {"DB_DIAL_TIMEOUT"},
	"queue.workers":           {"QUEUE_WORKERS"},
	"queue.size":              {"QUEUE_SIZE"},
	"queue.process_timeout":   {"QUEUE_PROCESS_TIMEOUT"},
	"log.level":               {"LOG_LEVEL"},
	"log.format":              {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_health_addr", "")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("parser.provider", ParserLlamaParse)
	v.SetDefault("parser.fallback", true)
	v.SetDefault("parser.base_url", "https://api.cloud.llamaindex.ai")
	v.SetDefault("parser.poll_interval", 2*time.Second)
	v.SetDefault("parser.timeout", 3*time.Minute)

	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.max_pages", 0)

	v.SetDefault("llm.model", "gpt-4o-2024-08-06")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.lenient_optional", true)

	v.SetDefault("database.dsn", "file:invoices.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_conn_life", 30*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 64)
	v.SetDefault("queue.process_timeout", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig loads configuration from .env, an optional YAML/JSON file and
// environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, WrapError(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, WrapError(err, "bind env "+key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, WrapError(err, "read config file")
		}
	}

	return &Config{
		Server: ServerConfig{
			HTTPAddr:        v.GetString("server.http_addr"),
			GRPCHealthAddr:  v.GetString("server.grpc_health_addr"),
			MaxUploadMB:     v.GetInt("server.max_upload_mb"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Parser: ParserConfig{
			Provider:     strings.ToLower(strings.TrimSpace(v.GetString("parser.provider"))),
			Fallback:     v.GetBool("parser.fallback"),
			APIKey:       v.GetString("parser.api_key"),
			BaseURL:      v.GetString("parser.base_url"),
			PollInterval: v.GetDuration("parser.poll_interval"),
			Timeout:      v.GetDuration("parser.timeout"),
		},
		OCR: OCRConfig{
			Pdftotext: v.GetString("ocr.pdftotext"),
			MaxPages:  v.GetInt("ocr.max_pages"),
		},
		LLM: LLMConfig{
			Model:           v.GetString("llm.model"),
			APIKey:          v.GetString("llm.api_key"),
			BaseURL:         v.GetString("llm.base_url"),
			Temperature:     v.GetFloat64("llm.temperature"),
			Timeout:         v.GetDuration("llm.timeout"),
			MaxRetries:      v.GetInt("llm.max_retries"),
			LenientOptional: v.GetBool("llm.lenient_optional"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxConns:        v.GetInt("database.max_conns"),
			MaxConnLifetime: v.GetDuration("database.max_conn_life"),
			DialTimeout:     v.GetDuration("database.dial_timeout"),
		},
		Queue: QueueConfig{
			Workers:        v.GetInt("queue.workers"),
			Size:           v.GetInt("queue.size"),
			ProcessTimeout: v.GetDuration("queue.process_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	switch c.Parser.Provider {
	case ParserLlamaParse:
		if c.Parser.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "LLAMA_CLOUD_API_KEY is required for the llamaparse provider", ErrInvalidInput)
		}
	case ParserLocal:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown PARSER_PROVIDER %q", c.Parser.Provider), ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
