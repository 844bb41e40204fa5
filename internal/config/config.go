package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const envPrefix = "PHPMYSQL"

var CfgPath = os.ExpandEnv("$HOME/.config/phpmysql/")
var CfgFile = filepath.Join(CfgPath, "config.yaml")

type Config struct {
	DefaultCommandTimeout int                    `mapstructure:"default_command_timeout" yaml:"default_command_timeout"`
	CurrentConnection     string                 `mapstructure:"current_connection" yaml:"current_connection"`
	Connections           map[string]*Connection `mapstructure:"connections" yaml:"connections"`
	Logging               Logging                `mapstructure:"logging" yaml:"logging"`
	Style                 Style                  `mapstructure:"style" yaml:"style"`
}

type Logging struct {
	ConsoleLevel string `mapstructure:"console_level" yaml:"console_level"`
	FileLevel    string `mapstructure:"file_level" yaml:"file_level"`
	FileOutput   string `mapstructure:"file_output" yaml:"file_output,omitempty"`
}

type Style struct {
	Accent string `mapstructure:"accent_color" yaml:"accent_color,omitempty"`
}

// Load reads the config at path, after loading a .env file from the working
// directory if one exists. A missing config file yields the defaults.
// Environment variables prefixed with PHPMYSQL_ override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_command_timeout", db.DefaultSettings.DefaultCommandTimeout)
	v.SetDefault("logging.console_level", "warn")
	v.SetDefault("logging.file_level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]*Connection)
	}
	for name, conn := range cfg.Connections {
		if conn == nil {
			return nil, fmt.Errorf("connection %q is empty", name)
		}
		if conn.Name == "" {
			conn.Name = name
		}
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Settings returns the session settings the config describes.
func (c *Config) Settings() db.Settings {
	return db.Settings{DefaultCommandTimeout: c.DefaultCommandTimeout}
}

// Connection returns the named profile, or the current one when name is
// empty.
func (c *Config) Connection(name string) (*Connection, error) {
	if name == "" {
		name = c.CurrentConnection
	}
	if name == "" {
		return nil, errors.New("no connection selected")
	}
	conn, ok := c.Connections[name]
	if !ok {
		return nil, fmt.Errorf("connection %q not found", name)
	}
	return conn, nil
}
