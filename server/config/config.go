package config

import (
	"errors"
	"net/http"
	"os"
	"regexp"

	"github.com/pelletier/go-toml"
)

const DefaultListenAddress = "0.0.0.0:8545"

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidCORSOrigins   = errors.New("invalid CORS allowed origins")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`
}

// CORS defines the server CORS configuration
type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods"`
	AllowedHeaders []string `toml:"allowed_headers"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
	}
}

// DefaultCORSConfig returns the default CORS configuration.
// The API is read-only, so any origin is allowed
func DefaultCORSConfig() *CORS {
	return &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the CORS config, if any
	if config.CORSConfig != nil && len(config.CORSConfig.AllowedOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}

	return nil
}

// Read reads the configuration from the given path.
// Fields missing from the file keep their default values
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := ReadInto(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadInto reads the configuration from the given path over cfg.
// Fields missing from the file keep their current values
func ReadInto(path string, cfg *Config) error {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Parse it
	return toml.Unmarshal(content, cfg)
}
