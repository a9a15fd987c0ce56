package cmd

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/meld/pkg/blend"
	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
)

// Instance names the two backend roles are registered under.
const (
	primaryName   = "primary"
	secondaryName = "secondary"
)

// createBackendsFromConfig instantiates the primary and secondary backends
// in the registry from their config sections.
func createBackendsFromConfig(registry *core.Registry, cfg *config.Config) error {
	if err := createBackendFromInfo(registry, primaryName, cfg.Primary); err != nil {
		return err
	}
	return createBackendFromInfo(registry, secondaryName, cfg.Secondary)
}

func createBackendFromInfo(registry *core.Registry, name string, info config.BackendInfo) error {
	prototype, err := registry.GetPrototype(info.Type)
	if err != nil {
		return fmt.Errorf("unknown backend type for %s: %w", name, err)
	}

	// Convert the raw config to the proper type using the backend's ConfigType
	backendConfig, err := convertRawConfigToType(prototype, info.Config)
	if err != nil {
		return fmt.Errorf("converting config for %s backend: %w", name, err)
	}

	if err := registry.CreateBackend(name, info.Type, backendConfig); err != nil {
		return fmt.Errorf("creating %s backend: %w", name, err)
	}
	return nil
}

// convertRawConfigToType converts raw config to the backend's expected type
func convertRawConfigToType(prototype core.Prototype, rawConfig interface{}) (interface{}, error) {
	// Get the expected config type from the prototype
	configType := prototype.ConfigType()

	if rawConfig == nil {
		// Return the default config type
		return configType, nil
	}

	// Marshal and unmarshal to convert between types
	configData, err := toml.Marshal(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("marshaling config data: %w", err)
	}

	if err := toml.Unmarshal(configData, configType); err != nil {
		return nil, fmt.Errorf("unmarshaling backend config: %w", err)
	}

	return configType, nil
}

// buildBlender wires the configured backend pair into a blend backend.
func buildBlender(registry *core.Registry, cfg *config.Config) (*blend.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := createBackendsFromConfig(registry, cfg); err != nil {
		return nil, err
	}

	primary, err := registry.GetBackend(primaryName)
	if err != nil {
		return nil, err
	}
	secondary, err := registry.GetBackend(secondaryName)
	if err != nil {
		return nil, err
	}

	var translator blend.QueryTranslator
	if t := cfg.Secondary.Translate; t != nil {
		translator = &blend.RewriteTranslator{
			Prepend: t.Prepend,
			Append:  t.Append,
			Params:  t.Params,
		}
	}

	settings := blend.NewSettings(cfg.Blend.BoostPosition, cfg.Blend.BoostCount, cfg.Blend.BlockSize)
	return blend.New("blend", primary, secondary, translator, settings), nil
}
