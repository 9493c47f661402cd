package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Search   SearchConfig   `mapstructure:"search"`
	Envelope EnvelopeConfig `mapstructure:"envelope"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// SearchConfig describes the downstream course search API
type SearchConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Timeout  int               `mapstructure:"timeout"` // seconds
	Headers  map[string]string `mapstructure:"headers"` // extra static headers
}

// EnvelopeConfig controls how responses are wrapped for the agent framework
type EnvelopeConfig struct {
	Mode          string `mapstructure:"mode"` // "structured" or "stringified"
	StrictRouting bool   `mapstructure:"strict_routing"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from cfgFile (or the default search paths when empty),
// environment variables prefixed with COURSEACTIONS_ and .env files.
func Load(cfgFile string) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// search.timeout -> COURSEACTIONS_SEARCH_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("COURSEACTIONS")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the adapter cannot run with
func (c *Config) Validate() error {
	if c.Search.Endpoint == "" {
		return errors.New("search.endpoint must not be empty")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be positive, got %d", c.Search.Timeout)
	}
	switch c.Envelope.Mode {
	case "structured", "stringified":
	default:
		return fmt.Errorf("envelope.mode must be structured or stringified, got %q", c.Envelope.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Search defaults
	v.SetDefault("search.endpoint", "https://artiefy.com/api/search-courses")
	v.SetDefault("search.timeout", 10)

	// Envelope defaults
	v.SetDefault("envelope.mode", "structured")
	v.SetDefault("envelope.strict_routing", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
