// Package config centralizes engine configuration so worker bounds, retry
// envelopes, and HTTP client limits live in one validated place instead of
// scattered magic numbers.
package config

import (
	"fmt"
	"time"
)

// Config holds workflow engine configuration.
type Config struct {
	// MaxWorkers bounds how many nodes may be in the executing state at
	// once. Capped at 25 by the planner regardless of this value.
	MaxWorkers int

	// ProgressTickInterval records the progress-tick period (default
	// 100ms). pkg/queue does not read it: its Manager pushes a QueueStats
	// snapshot on a fixed 100ms ticker while at least one worker is
	// active, in addition to pushing on every state change.
	ProgressTickInterval time.Duration

	// LLM retry envelope (RetryPolicy, LLMChain path).
	LLMRetryBaseDelay    time.Duration
	LLMRetryMaxDelay     time.Duration
	LLMRetryWallClockCap time.Duration
	LLMRetryMaxAttempts  int
	LLMRetryJitterPct    float64

	// HTTP-sender retry envelope (RetryPolicy, OutputSender path).
	HTTPRetryBaseDelay   time.Duration
	HTTPRetryMaxDelay    time.Duration
	HTTPRetryMaxAttempts int
	HTTPRetryJitterPct   float64

	// HTTP client configuration shared by LLM provider dispatch and
	// OutputSender HTTP mode.
	HTTPTimeout         time.Duration
	MaxHTTPRedirects    int
	MaxResponseSize     int64
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Resource limits.
	MaxNodes     int
	MaxEdges     int
	MaxVariables int

	// SSRF guard applied to redirects followed by pkg/httpclient, shared by
	// LLM provider dispatch and OutputSender's HTTP mode.
	BlockPrivateIPs    bool
	BlockLocalhost     bool
	BlockLinkLocal     bool
	BlockCloudMetadata bool
	AllowedDomains     []string
}

// HTTPClientConfig configures one named outbound HTTP client (one per LLM
// provider, plus one for OutputSender's job-status PATCH). It mirrors
// httpclient.ClientConfig's shape so FromConfigHTTPClient is a plain
// field-for-field conversion.
type HTTPClientConfig struct {
	Name        string
	Description string

	AuthType string
	Username string
	Password string
	Token    string

	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DisableKeepAlives   bool

	MaxRedirects    int
	MaxResponseSize int64
	FollowRedirects bool

	DefaultHeaders     map[string]string
	DefaultQueryParams map[string]string

	BaseURL string
}

// Default returns a Config with production-ready default values, matching
// the numeric envelope spec.md §4.4 calls out as the LLM and HTTP-sender
// defaults.
func Default() *Config {
	return &Config{
		MaxWorkers:           1,
		ProgressTickInterval: 100 * time.Millisecond, // ~10 Hz

		LLMRetryBaseDelay:    1 * time.Second,
		LLMRetryMaxDelay:     30 * time.Second,
		LLMRetryWallClockCap: 5 * time.Minute,
		LLMRetryMaxAttempts:  20,
		LLMRetryJitterPct:    0.2,

		HTTPRetryBaseDelay:   1 * time.Second,
		HTTPRetryMaxDelay:    30 * time.Second,
		HTTPRetryMaxAttempts: 3,
		HTTPRetryJitterPct:   0.2,

		HTTPTimeout:         30 * time.Second,
		MaxHTTPRedirects:    10,
		MaxResponseSize:     10 * 1024 * 1024,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		MaxNodes:     1000,
		MaxEdges:     5000,
		MaxVariables: 0, // unlimited
	}
}

// Development returns a Config tuned for local iteration: a single worker,
// short retry caps, so broken workflows fail fast instead of burning the
// 5-minute wall clock.
func Development() *Config {
	cfg := Default()
	cfg.LLMRetryWallClockCap = 30 * time.Second
	cfg.LLMRetryMaxAttempts = 5
	return cfg
}

// Production returns a Config tuned for headless batch execution: up to 8
// concurrent workers.
func Production() *Config {
	cfg := Default()
	cfg.MaxWorkers = 8
	return cfg
}

// Testing returns a Config tuned for fast, deterministic test runs: short
// retry caps and SSRF blocking left off so tests can dial httptest servers
// on loopback addresses.
func Testing() *Config {
	cfg := Default()
	cfg.LLMRetryWallClockCap = 200 * time.Millisecond
	cfg.LLMRetryBaseDelay = 1 * time.Millisecond
	cfg.LLMRetryMaxDelay = 5 * time.Millisecond
	cfg.HTTPRetryBaseDelay = 1 * time.Millisecond
	cfg.HTTPRetryMaxDelay = 5 * time.Millisecond
	return cfg
}

const maxWorkersCeiling = 25

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("config: MaxWorkers must be positive, got %d", c.MaxWorkers)
	}
	if c.LLMRetryMaxAttempts <= 0 {
		return fmt.Errorf("config: LLMRetryMaxAttempts must be positive, got %d", c.LLMRetryMaxAttempts)
	}
	if c.HTTPRetryMaxAttempts <= 0 {
		return fmt.Errorf("config: HTTPRetryMaxAttempts must be positive, got %d", c.HTTPRetryMaxAttempts)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("config: HTTPTimeout cannot be negative")
	}
	return nil
}

// ClampWorkers enforces the planner's hard ceiling on worker count (spec
// §4.6: "one worker slot by default (tunable; capped at 25)").
func (c *Config) ClampWorkers() int {
	if c.MaxWorkers > maxWorkersCeiling {
		return maxWorkersCeiling
	}
	if c.MaxWorkers <= 0 {
		return 1
	}
	return c.MaxWorkers
}
