package llamaparse

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	Name           = "llamaparse"
	DefaultBaseURL = "https://api.cloud.llamaindex.ai"
	ResultMarkdown = "markdown"
)

// Config holds configuration for the LlamaParse client.
type Config struct {
	APIKey       string
	BaseURL      string        // default https://api.cloud.llamaindex.ai
	PollInterval time.Duration // delay between job status checks
	Timeout      time.Duration // overall budget for upload, parse and download
	HTTPClient   *http.Client  // optional (tests)
}

// Client implements extract.TextExtractor with the LlamaParse REST API.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	timeout      time.Duration
	client       *http.Client
	log          *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		client:       httpClient,
		log:          logger,
	}
}
