package ai

import (
	"errors"
	"fmt"
)

// ConfigError marks a failure caused by missing or invalid gateway
// configuration (typically a missing API key). It is fatal for the current
// attempt and has no retry path other than fixing the configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "analysis gateway not configured: " + e.Reason
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// UserMessage renders err as the message shown to the user. Configuration
// errors surface their reason verbatim; everything else is a transient
// service failure the user may retry.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Reason
	}
	return fmt.Sprintf("analysis failed: %v", err)
}
