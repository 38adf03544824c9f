package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the full runtime configuration.
// Loaded by viper (mapstructure tags) and printed by `config show` (yaml tags).
type Config struct {
	Catalog      CatalogConfig      `mapstructure:"catalog" yaml:"catalog"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Search       SearchConfig       `mapstructure:"search" yaml:"search"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Email        EmailConfig        `mapstructure:"email" yaml:"email"`
	Schedule     ScheduleConfig     `mapstructure:"schedule" yaml:"schedule"`
	Digest       DigestConfig       `mapstructure:"digest" yaml:"digest"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
}

// CatalogConfig points at the project catalog file
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// StoreConfig configures the sqlite result store
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SearchConfig configures query planning and the search backends
type SearchConfig struct {
	Providers          []string      `mapstructure:"providers" yaml:"providers"` // priority order
	Strategy           string        `mapstructure:"strategy" yaml:"strategy"`   // broad, outreach, expand
	MaxResultsPerQuery int           `mapstructure:"max_results_per_query" yaml:"max_results_per_query"`
	MaxQueries         int           `mapstructure:"max_queries" yaml:"max_queries"`
	FollowupDepth      int           `mapstructure:"followup_depth" yaml:"followup_depth"`
	FollowupLimit      int           `mapstructure:"followup_limit" yaml:"followup_limit"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`

	BraveAPIKey  string `mapstructure:"brave_api_key" yaml:"brave_api_key,omitempty"`
	SerpAPIKey   string `mapstructure:"serpapi_api_key" yaml:"serpapi_api_key,omitempty"`
	BingAPIKey   string `mapstructure:"bing_api_key" yaml:"bing_api_key,omitempty"`
	BingEndpoint string `mapstructure:"bing_endpoint" yaml:"bing_endpoint"`
	TavilyAPIKey string `mapstructure:"tavily_api_key" yaml:"tavily_api_key,omitempty"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" yaml:"gemini_api_key,omitempty"`
	GeminiModel  string `mapstructure:"gemini_model" yaml:"gemini_model"`
}

// LLMConfig configures the scoring/drafting model
type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // gemini, openai, anthropic, ollama, "" (offline)
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout   int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"` // results per analysis call
}

// EmailConfig configures outbound digests and inbound reply polling
type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass" yaml:"smtp_pass,omitempty"`
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort int    `mapstructure:"imap_port" yaml:"imap_port"`
	IMAPUser string `mapstructure:"imap_user" yaml:"imap_user"`
	IMAPPass string `mapstructure:"imap_pass" yaml:"imap_pass,omitempty"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
}

// ScheduleConfig configures the two periodic jobs
type ScheduleConfig struct {
	DiscoveryInterval time.Duration `mapstructure:"discovery_interval" yaml:"discovery_interval"`
	ReplyInterval     time.Duration `mapstructure:"reply_interval" yaml:"reply_interval"`
	DiscoveryCron     string        `mapstructure:"discovery_cron" yaml:"discovery_cron,omitempty"` // overrides the interval
	ReplyCron         string        `mapstructure:"reply_cron" yaml:"reply_cron,omitempty"`
	MetricsAddr       string        `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty"`
}

// DigestConfig bounds what goes into a digest
type DigestConfig struct {
	MaxResults int     `mapstructure:"max_results" yaml:"max_results"`
	MaxPivots  int     `mapstructure:"max_pivots" yaml:"max_pivots"`
	MinScore   float64 `mapstructure:"min_score" yaml:"min_score"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"` // concurrent scoring batches
}

// RateLimitingConfig throttles each search backend
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// CacheConfig configures the search response cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// HTTPConfig holds client settings shared by every outbound HTTP call
type HTTPConfig struct {
	UserAgent  string `mapstructure:"user_agent" yaml:"user_agent"`
	HTTPProxy  string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy    string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// HomeDir is the directory holding config, catalog, database and cache.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grantscout"
	}
	return filepath.Join(home, ".grantscout")
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	dir := HomeDir()
	return &Config{
		Catalog: CatalogConfig{Path: filepath.Join(dir, "projects.yaml")},
		Store:   StoreConfig{Path: filepath.Join(dir, "results.db")},
		Search: SearchConfig{
			Providers:          []string{"grounded"},
			Strategy:           "broad",
			MaxResultsPerQuery: 5,
			MaxQueries:         30,
			FollowupDepth:      2,
			FollowupLimit:      10,
			Timeout:            90 * time.Second,
			BingEndpoint:       "https://api.bing.microsoft.com/v7.0/search",
			GeminiModel:        "gemini-2.5-flash",
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Timeout:   120,
			MaxTokens: 2048,
			BatchSize: 15,
		},
		Email: EmailConfig{
			SMTPPort: 587,
			IMAPPort: 993,
			Mailbox:  "INBOX",
		},
		Schedule: ScheduleConfig{
			DiscoveryInterval: 24 * time.Hour,
			ReplyInterval:     30 * time.Minute,
		},
		Digest: DigestConfig{
			MaxResults: 20,
			MaxPivots:  10,
			MinScore:   0.5,
		},
		Concurrency: ConcurrencyConfig{Workers: 2},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(dir, "cache"),
			MemoryTTL: time.Hour,
			DiskTTL:   12 * time.Hour,
		},
		HTTP: HTTPConfig{
			UserAgent: "grantscout/0.1 (+https://github.com/ppiankov/grantscout)",
		},
	}
}

// MaxQueriesOrDefault returns MaxQueries, or 30 when unset
func (c SearchConfig) MaxQueriesOrDefault() int {
	if c.MaxQueries <= 0 {
		return 30
	}
	return c.MaxQueries
}
