package hooks

import "fmt"

// FailurePolicy decides what Execute does when a hook returns an error.
type FailurePolicy string

const (
	// FailFast stops the stage at the first failing hook.
	FailFast FailurePolicy = "fail_fast"

	// ContinueOnError runs every hook and joins the failures.
	ContinueOnError FailurePolicy = "continue"
)

// Config holds hook configuration
type Config struct {
	// FailurePolicy controls hook error handling (fail_fast or continue)
	FailurePolicy FailurePolicy `koanf:"failure_policy"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		FailurePolicy: FailFast,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.FailurePolicy {
	case FailFast, ContinueOnError:
		return nil
	default:
		return fmt.Errorf("failure_policy must be %q or %q, got %q", FailFast, ContinueOnError, c.FailurePolicy)
	}
}
