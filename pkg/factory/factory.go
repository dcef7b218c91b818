// Package factory builds components selected by name from configuration
package factory

import (
	"fmt"
	"log/slog"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Component is the base interface that all components must implement
type Component interface {
	// Init initializes the component with configuration
	Init(parser ConfigParser) error

	// Name returns the component name for logging and identification
	Name() string

	// Validate validates the component state after initialization
	Validate() error
}

// HealthChecker is implemented by components depending on a remote service
type HealthChecker interface {
	Component
	// Health checks if the component is healthy
	Health() error
}

// ConfigParser is a function that parses configuration into the provided structure
// Components call this to extract their specific configuration
type ConfigParser func(v any) error

// Build creates and initializes a component with the provided configuration
func Build[T Component](component T, config any) (T, error) {
	var zero T

	parser := func(v any) error {
		return parseConfig(config, v)
	}

	if err := component.Init(parser); err != nil {
		return zero, fmt.Errorf("init %s: %w", component.Name(), err)
	}
	if err := component.Validate(); err != nil {
		return zero, fmt.Errorf("validate %s: %w", component.Name(), err)
	}
	return component, nil
}

// BuildWithLogger creates and initializes a component with configuration and logger
func BuildWithLogger[T Component](component T, config any, logger *slog.Logger) (T, error) {
	logger.Debug("Building component", "name", component.Name())

	result, err := Build(component, config)
	if err != nil {
		logger.Error("Failed to build component", "name", component.Name(), "error", err)
		return result, err
	}

	logger.Info("Component built successfully", "name", component.Name())
	return result, nil
}

// parseConfig fills target from source. Values of the target type are
// assigned directly, anything else goes through YAML so the yaml tags of
// the configuration structs apply.
func parseConfig(source any, target any) error {
	if reflect.TypeOf(source) == reflect.TypeOf(target).Elem() {
		reflect.ValueOf(target).Elem().Set(reflect.ValueOf(source))
		return nil
	}

	data, err := yaml.Marshal(source)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
