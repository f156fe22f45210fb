package config

import "fmt"

// ConfigError reports a structural problem in a configuration tree: a missing
// mandatory attribute or child, or a block of the wrong type.
type ConfigError struct {
	Source  string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Source, e.Message)
}

// Errorf builds a ConfigError labelled with source.
func Errorf(source, format string, args ...any) *ConfigError {
	return &ConfigError{Source: source, Message: fmt.Sprintf(format, args...)}
}
