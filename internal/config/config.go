package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// minKeyLength is the shortest accepted HS256 signing key, in bytes.
const minKeyLength = 32

// Config holds all application configuration.
type Config struct {
	// Listen is the address the HTTP server listens on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Database holds the store settings.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	// JWT holds the session token settings.
	JWT JWTConfig `yaml:"jwt" mapstructure:"jwt"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the sqlite database file or DSN.
	Path string `yaml:"path" mapstructure:"path"`
}

// JWTConfig contains token signing settings.
type JWTConfig struct {
	// Key is the symmetric HS256 signing key.
	Key string `yaml:"key" mapstructure:"key"`
	// Issuer is written to and required in the iss claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// Audience is written to and required in the aud claim.
	Audience string `yaml:"audience" mapstructure:"audience"`
	// TTL is how long an issued token stays valid.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Load reads the configuration from path. If path is empty it searches the
// default locations; a missing config file is fine as long as the required
// values come from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOOKTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.booktracker")
		v.AddConfigPath("/etc/booktracker")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "./data/booktracker.db")

	// AutomaticEnv only resolves keys viper knows about
	v.SetDefault("jwt.key", "")
	v.SetDefault("jwt.issuer", "booktracker")
	v.SetDefault("jwt.audience", "booktracker")
	v.SetDefault("jwt.ttl", 24*time.Hour)
}

func validateConfig(c *Config) error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	switch c.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (use sqlite3 or sqlite)", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.JWT.Key == "" {
		return fmt.Errorf("jwt key is required; set jwt.key or BOOKTRACKER_JWT_KEY")
	}
	if len(c.JWT.Key) < minKeyLength {
		return fmt.Errorf("jwt key must be at least %d bytes", minKeyLength)
	}
	if c.JWT.Issuer == "" || c.JWT.Audience == "" {
		return fmt.Errorf("jwt issuer and audience are required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt ttl must be positive")
	}

	return nil
}

// String returns a representation of the config with the signing key masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Listen: %s, DB: %s:%s, JWT: iss=%s aud=%s ttl=%s key=***}",
		c.Listen, c.Database.Driver, c.Database.Path, c.JWT.Issuer, c.JWT.Audience, c.JWT.TTL)
}
