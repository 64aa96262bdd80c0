// Package ctl implements the usblrbctl command, a small HTTP client for
// the usblrb API server.
package ctl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"

	"github.com/larsks/usblrb/internal/config"
)

const defaultServerURL = "http://localhost:8080"

// Config holds the usblrbctl configuration.
type Config struct {
	ServerURL  string `mapstructure:"server_url"`
	ConfigFile string `mapstructure:"config_file"`

	explicitConfigFile bool
}

func getDefaultServerURL() string {
	if url := os.Getenv("USBLRB_SERVER_URL"); url != "" {
		return url
	}

	return defaultServerURL
}

func getDefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "usblrb", "usblrb.toml")
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ServerURL: getDefaultServerURL(),
	}
}

// AddFlags adds command-line flags for all configuration options.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", getDefaultConfigFile(), "Config file to use")
	fs.StringVar(&c.ServerURL, "server-url", c.ServerURL, "API server URL")
}

// LoadConfigWithFlagSet loads configuration with the standard precedence
// using the given flag set. A missing default config file is not an
// error; a missing explicit one is.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	c.explicitConfigFile = c.ConfigFile != getDefaultConfigFile()

	if c.explicitConfigFile {
		if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", c.ConfigFile)
		}
	} else {
		if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
			c.ConfigFile = ""
		}
	}

	loader := config.NewConfigLoader()
	loader.SetFlagSet(fs)
	loader.SetConfigFile(c.ConfigFile)
	loader.SetDefaults(map[string]any{
		"server_url": getDefaultServerURL(),
	})

	return loader.LoadConfig(c)
}
