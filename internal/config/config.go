// Package config loads tzcall settings from $TZCALL_HOME/config.yaml,
// an optional .env file and TZCALL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file inside the home directory.
	FileName = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TZCALL_"

	accountsFile  = "accounts.json"
	contractsFile = "contracts.json"
	logFile       = "operations.db"
)

// Network is a named node endpoint.
type Network struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
}

// Config holds all tzcall settings. Home is never persisted; it is the
// directory the rest of the paths are resolved against.
type Config struct {
	Home string `yaml:"-"`

	Network        string        `yaml:"network"`
	Networks       []Network     `yaml:"networks"`
	DefaultAccount string        `yaml:"default_account"`
	ClientBinary   string        `yaml:"client"`
	CompilerBinary string        `yaml:"compiler"`
	BurnCap        string        `yaml:"burn_cap"`
	LogStore       string        `yaml:"log_store"`
	LogLevel       string        `yaml:"log_level"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration rooted at home.
func Default(home string) Config {
	return Config{
		Home:    home,
		Network: "ghostnet",
		Networks: []Network{
			{Name: "mainnet", Endpoint: "https://mainnet.tezos.marigold.dev"},
			{Name: "ghostnet", Endpoint: "https://ghostnet.tezos.marigold.dev"},
			{Name: "sandbox", Endpoint: "http://localhost:20000"},
		},
		DefaultAccount: "",
		ClientBinary:   "octez-client",
		CompilerBinary: "ligo",
		BurnCap:        "1",
		LogStore:       logFile,
		LogLevel:       "info",
		Timeout:        2 * time.Minute,
	}
}

// DefaultHome returns $TZCALL_HOME, falling back to ~/.tzcall.
func DefaultHome() (string, error) {
	if home := os.Getenv(EnvPrefix + "HOME"); home != "" {
		return home, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home: %w", err)
	}
	return filepath.Join(dir, ".tzcall"), nil
}

// Load reads the configuration rooted at home. A missing config file is
// not an error; defaults apply. Values from home/.env are exported to the
// process environment without overriding variables already set, then
// TZCALL_* variables override file values.
func Load(home string) (Config, error) {
	cfg := Default(home)

	data, err := os.ReadFile(filepath.Join(home, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("config: read: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", FileName, err)
		}
		cfg.Home = home
	}

	if err := godotenv.Load(filepath.Join(home, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Network = envStr("NETWORK", c.Network)
	c.DefaultAccount = envStr("ACCOUNT", c.DefaultAccount)
	c.ClientBinary = envStr("CLIENT", c.ClientBinary)
	c.CompilerBinary = envStr("COMPILER", c.CompilerBinary)
	c.BurnCap = envStr("BURN_CAP", c.BurnCap)
	c.LogStore = envStr("LOG_STORE", c.LogStore)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvPrefix + "ENDPOINT"); v != "" {
		c.SetEndpoint(c.Network, v)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return defaultVal
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.Home == "" {
		return errors.New("config: home directory is required")
	}
	if c.ClientBinary == "" {
		return errors.New("config: client binary is required")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if _, ok := c.Endpoint(); !ok {
		return fmt.Errorf("config: unknown network %q", c.Network)
	}
	return nil
}

// Endpoint returns the endpoint of the selected network.
func (c Config) Endpoint() (string, bool) {
	for _, n := range c.Networks {
		if n.Name == c.Network {
			return n.Endpoint, true
		}
	}
	return "", false
}

// SetEndpoint adds or replaces the named network.
func (c *Config) SetEndpoint(name, endpoint string) {
	for i := range c.Networks {
		if c.Networks[i].Name == name {
			c.Networks[i].Endpoint = endpoint
			return
		}
	}
	c.Networks = append(c.Networks, Network{Name: name, Endpoint: endpoint})
}

// Set assigns a scalar setting by its YAML key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "network":
		c.Network = value
	case "default_account":
		c.DefaultAccount = value
	case "client":
		c.ClientBinary = value
	case "compiler":
		c.CompilerBinary = value
	case "burn_cap":
		c.BurnCap = value
	case "log_store":
		c.LogStore = value
	case "log_level":
		c.LogLevel = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config: timeout: %w", err)
		}
		c.Timeout = d
	default:
		if name, ok := strings.CutPrefix(key, "networks."); ok && name != "" {
			c.SetEndpoint(name, value)
			return nil
		}
		return fmt.Errorf("config: unknown key %q", key)
	}
	return nil
}

// Save writes the configuration to home/config.yaml.
func (c Config) Save() error {
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return fmt.Errorf("config: create home: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.Home, FileName), data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// AccountsPath is the accounts store file.
func (c Config) AccountsPath() string { return filepath.Join(c.Home, accountsFile) }

// ContractsPath is the contracts store file.
func (c Config) ContractsPath() string { return filepath.Join(c.Home, contractsFile) }

// LogPath is the operation log database. Relative paths resolve against Home.
func (c Config) LogPath() string {
	if filepath.IsAbs(c.LogStore) {
		return c.LogStore
	}
	return filepath.Join(c.Home, c.LogStore)
}
