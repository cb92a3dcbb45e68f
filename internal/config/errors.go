package config

import "fmt"

// ConfigError is a validation failure in one section of the file.
type ConfigError struct {
	Section string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Section, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }
