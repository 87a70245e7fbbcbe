package scheduling

import "fmt"

// ValidationError rejects a request before any provider call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError means the service lacks settings it needs to reach the
// calendar provider.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing configuration %s: %v", e.Key, e.Err)
	}
	return "missing configuration " + e.Key
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
