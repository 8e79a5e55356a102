package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token      string        `envconfig:"TOKEN" validate:"required"`
	Org        string        `envconfig:"ORG" validate:"required"`
	APIBaseURL string        `envconfig:"API_BASE_URL"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"2m"`
	Retry      RetryConfig   `envconfig:"RETRY"`
}

// RetryConfig holds transport retry configuration for transient failures
type RetryConfig struct {
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	InitialBackoff time.Duration `envconfig:"INITIAL_BACKOFF" default:"1s"`
	MaxBackoff     time.Duration `envconfig:"MAX_BACKOFF" default:"1m"`
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		Timeout: 2 * time.Minute,
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
		},
	}
}
