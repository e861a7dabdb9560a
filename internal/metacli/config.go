package metacli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Config holds server connection details for the CLI.
type Config struct {
	Version string `yaml:"version"`
	// Server is the base URL of the metadata server, host:port or full URL.
	Server string `yaml:"server"`
	// Tenant is the tenant code sent with every scoped request.
	Tenant string `yaml:"tenant"`
	// UserID and UserName identify the caller in audit attributes.
	UserID   string `yaml:"user_id"`
	UserName string `yaml:"user_name"`
	// Trusted selects the trusted API surface. Only meaningful when the
	// server's trusted port is reachable.
	Trusted bool `yaml:"trusted"`
}

var config *Config

// GetDefaultConfigPath returns the OS-specific default config location,
// e.g. ~/.config/meridian/config.yaml on Linux.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "meridian", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file, falling back
// to the default location.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}
	if c.Server == "" {
		return errors.New("server is required")
	}
	if c.Tenant == "" {
		return errors.New("tenant is required")
	}
	c.Server = normalizeServer(c.Server)
	config = &c
	return nil
}

// WriteConfig saves the configuration to the given path, creating parent
// directories as needed.
func WriteConfig(c *Config, file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(file, out, 0o600)
}

func GetConfig() *Config {
	return config
}

// GetServerURL returns the server base URL with a scheme.
func (c *Config) GetServerURL() string {
	return c.Server
}

func normalizeServer(server string) string {
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return server
	}
	return "http://" + server
}
