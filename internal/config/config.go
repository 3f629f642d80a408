// ABOUTME: Configuration loading and parsing for the coursebook server
// ABOUTME: Supports YAML files with environment variable expansion and validation

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// InsecureDefaultSecret is the fallback signing secret used when none is
// configured. It is public knowledge and must never reach production;
// Validate refuses it there.
const InsecureDefaultSecret = "SUPER_SECRET_JWT_SECRET"

// EnvProduction marks a production-like deployment in Config.Environment
const EnvProduction = "production"

// Config represents the complete coursebook configuration
type Config struct {
	Environment string         `yaml:"environment"` // "development" (default) or "production"
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Mail        MailConfig     `yaml:"mail"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds the signing secret for bearer credentials
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw YAML configuration bytes
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in defaults for optional fields
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "localhost:3000"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. If the environment variable is not set, it is replaced with
// an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Outside production the insecure default secret is tolerated (the
	// server warns at boot); in production it refuses to start.
	if c.Environment == EnvProduction {
		if c.Auth.Secret == "" || c.Auth.Secret == InsecureDefaultSecret {
			return fmt.Errorf("auth.secret must be set to a non-default value in production")
		}
	}

	return nil
}

// AuthSecret returns the configured signing secret, falling back to the
// insecure default. UsingDefaultSecret reports whether the fallback is in use.
func (c *Config) AuthSecret() string {
	if c.Auth.Secret == "" {
		return InsecureDefaultSecret
	}
	return c.Auth.Secret
}

// UsingDefaultSecret reports whether the insecure fallback secret is active
func (c *Config) UsingDefaultSecret() bool {
	return c.Auth.Secret == "" || c.Auth.Secret == InsecureDefaultSecret
}
