package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an unknown station, city or POI
var ErrNotFound = errors.New("not found")

// UpstreamError wraps a non-2xx or malformed provider response. The message
// exposed to clients stays generic; details are for server-side logs.
type UpstreamError struct {
	Provider string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ConfigError marks a missing credential or certificate, surfaced at first use
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.Missing)
}
