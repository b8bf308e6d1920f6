// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "convertly/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ServiceConfig locates the remote conversion service. BaseURL is the one
// origin every workflow talks to; download locators returned by the service
// are resolved against it.
type ServiceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the service origin (default "http://localhost:5000").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIToken is sent as a bearer token when non-empty.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" mapstructure:"api_token"`

	// RateLimitRetries is the number of backoff retries on HTTP 429.
	// Zero disables retries entirely.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// BatchConfig holds settings for batch dispatch.
type BatchConfig struct {
	// Concurrency caps the number of in-flight requests per batch.
	// Zero means one request per item, all at once.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// ProvisionalProgress is the progress value assigned when an item's
	// request is sent (default 15).
	ProvisionalProgress int `json:"provisional_progress" yaml:"provisional_progress" mapstructure:"provisional_progress"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Dir contains history.db. Empty disables history recording.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// MetricsConfig holds settings for Prometheus instrumentation output.
type MetricsConfig struct {
	// Textfile is the path metrics are written to after a run, in the
	// node_exporter textfile format. Empty disables the export.
	Textfile string `json:"textfile" yaml:"textfile" mapstructure:"textfile"`
}

// ArchiveConfig holds settings for mirroring downloaded artifacts to S3.
type ArchiveConfig struct {
	// Bucket is the destination bucket. Empty disables archiving.
	Bucket string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// Region is the AWS region; empty uses the SDK default chain.
	Region string `json:"region" yaml:"region" mapstructure:"region"`

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey select static credentials. When
	// either is empty the SDK default credential chain is used.
	AccessKeyID     string `json:"-" yaml:"-" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"-" mapstructure:"secret_access_key"`
}

// Config groups all component configurations.
type Config struct {
	Service ServiceConfig `json:"service" yaml:"service" mapstructure:"service"`
	Batch   BatchConfig   `json:"batch" yaml:"batch" mapstructure:"batch"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Archive ArchiveConfig `json:"archive" yaml:"archive" mapstructure:"archive"`
}

// Defaults applied when a setting is left unset.
const (
	DefaultBaseURL             = "http://localhost:5000"
	DefaultTimeout             = 120 * time.Second
	DefaultUserAgent           = "convertly/0.1"
	DefaultProvisionalProgress = 15
)

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = DefaultBaseURL
	}
	if c.Service.Timeout <= 0 {
		c.Service.Timeout = DefaultTimeout
	}
	if c.Service.UserAgent == "" {
		c.Service.UserAgent = DefaultUserAgent
	}
	if c.Batch.ProvisionalProgress <= 0 || c.Batch.ProvisionalProgress >= 100 {
		c.Batch.ProvisionalProgress = DefaultProvisionalProgress
	}
	if c.Batch.Concurrency < 0 {
		c.Batch.Concurrency = 0
	}
	return c
}
