// Package config provides YAML-based configuration loading with environment
// variable expansion and overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// LoadWithEnv loads configuration from an optional YAML file and then
// applies `env` struct tag overrides using prefix (e.g. "FAQS_"). A missing
// file leaves target's defaults in place.
func LoadWithEnv[T any](filename, prefix string, target *T) error {
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := decodeFile(filename, target); err != nil {
				return err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config file %s: %w", filename, err)
		}
	}
	if err := env.Parse(target, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return validate(target)
}

func decodeFile[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

func validate[T any](target *T) error {
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
