package connector

import (
	"time"

	"github.com/simbridge/simbridge/pkg/platform"
)

// Option configures a Connector. Options override the values taken from the
// client configuration.
type Option func(*Connector)

// WithRetry enables or disables re-registration when the platform
// unregisters the session.
func WithRetry(enabled bool) Option {
	return func(c *Connector) {
		c.retry = enabled
	}
}

// WithRetryLimit bounds how many times a single Advance re-registers.
// Values below 1 are ignored.
func WithRetryLimit(n int) Option {
	return func(c *Connector) {
		if n >= 1 {
			c.retryLimit = n
		}
	}
}

// WithRetryDelay sets the wait before each re-registration.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Connector) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithVerbose logs state payloads and events at debug level.
func WithVerbose(verbose bool) Option {
	return func(c *Connector) {
		c.verbose = verbose
	}
}

// WithPlatformClient replaces the HTTP client built from the configuration.
func WithPlatformClient(client platform.Client) Option {
	return func(c *Connector) {
		c.client = client
	}
}
