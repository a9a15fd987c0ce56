package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

type Config struct {
	ListenAddr string      `toml:"listen_addr"`
	Blend      BlendConfig `toml:"blend"`
	Primary    BackendInfo `toml:"primary"`
	Secondary  BackendInfo `toml:"secondary"`
}

type BlendConfig struct {
	BoostPosition int `toml:"boost_position"`
	BoostCount    int `toml:"boost_count"`
	BlockSize     int `toml:"block_size"`
}

type BackendInfo struct {
	Type      string           `toml:"type"`
	Translate *TranslateConfig `toml:"translate,omitempty"`
	Config    interface{}      `toml:"config"`
}

// TranslateConfig rewrites the query sent to a backend. Only the
// secondary backend's translate section is honored; the primary always
// receives the caller's query untouched.
type TranslateConfig struct {
	Prepend string            `toml:"prepend"`
	Append  string            `toml:"append"`
	Params  map[string]string `toml:"params"`
}

func GetDefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		Blend: BlendConfig{
			BlockSize: 10,
		},
	}
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.Blend.BlockSize == 0 {
		config.Blend.BlockSize = 10
	}

	return &config, nil
}

// Validate checks that both backend roles are filled in. Loading alone
// never fails on an incomplete file so that init and list commands still
// work before the user has picked backends.
func (c *Config) Validate() error {
	if c.Primary.Type == "" {
		return fmt.Errorf("primary backend type is required")
	}
	if c.Secondary.Type == "" {
		return fmt.Errorf("secondary backend type is required")
	}
	if c.Blend.BoostPosition < 0 || c.Blend.BoostCount < 0 {
		return fmt.Errorf("boost_position and boost_count must be non-negative")
	}
	if c.Blend.BlockSize < 0 {
		return fmt.Errorf("block_size must be non-negative")
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func generateConfigTemplate() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", fmt.Errorf("getting default storage directory: %w", err)
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/meld", storageDir, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default directory for index databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	meldDir := filepath.Join(dataDir, "meld")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(meldDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", meldDir, err)
	}

	return meldDir, nil
}

// GetDefaultDBPath returns the default index database path
func GetDefaultDBPath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "index.db"), nil
}

// GetConfigDir returns the configuration directory for meld
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	meldConfigDir := filepath.Join(configDir, "meld")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(meldConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", meldConfigDir, err)
	}

	return meldConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
