package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	passwordPlaceholder = "{password}"
	keyringPrefix       = "keyring:"
)

// Connection is a saved connection profile.
type Connection struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Driver string `mapstructure:"driver" yaml:"driver,omitempty"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	// Password replaces {password} in DSN. It is either a literal,
	// ${VAR} for an environment variable, or keyring:<service>/<user>.
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// ResolveDSN returns the DSN with its password placeholder filled in.
func (c *Connection) ResolveDSN() (string, error) {
	if !strings.Contains(c.DSN, passwordPlaceholder) {
		return c.DSN, nil
	}
	password, err := c.resolvePassword()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(c.DSN, passwordPlaceholder, password), nil
}

func (c *Connection) resolvePassword() (string, error) {
	password := c.Password

	if strings.HasPrefix(password, "${") && strings.HasSuffix(password, "}") {
		envVar := strings.TrimPrefix(strings.TrimSuffix(password, "}"), "${")
		return os.Getenv(envVar), nil
	}

	if ref, ok := strings.CutPrefix(password, keyringPrefix); ok {
		service, user, found := strings.Cut(ref, "/")
		if !found || service == "" || user == "" {
			return "", fmt.Errorf("connection %q: keyring reference must be keyring:<service>/<user>", c.Name)
		}
		secret, err := keyring.Get(service, user)
		if err != nil {
			return "", fmt.Errorf("connection %q: keyring lookup: %w", c.Name, err)
		}
		return secret, nil
	}

	return password, nil
}
