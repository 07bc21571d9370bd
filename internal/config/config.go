// Package config loads the console settings from .env, an optional YAML
// file, DECKARD_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "DECKARD"

// Config holds the console settings
type Config struct {
	Listen      string `mapstructure:"listen"`
	UpstreamURL string `mapstructure:"upstream-url"`
	ViewOrigin  string `mapstructure:"view-origin"`
	CatalogPath string `mapstructure:"catalog"`
	Placeholder string `mapstructure:"placeholder"`

	HeartbeatPeriod time.Duration `mapstructure:"heartbeat-period"`
	WarmDelay       time.Duration `mapstructure:"warm-delay"`
	ColdDelay       time.Duration `mapstructure:"cold-delay"`
	RequestTimeout  time.Duration `mapstructure:"request-timeout"`
	AttachTimeout   time.Duration `mapstructure:"attach-timeout"`

	MaxTabs        int   `mapstructure:"max-tabs"`
	MaxUploadBytes int64 `mapstructure:"max-upload-bytes"`
	RatePerHour    int   `mapstructure:"rate-limit-per-hour"`
	RateBurst      int   `mapstructure:"rate-limit-burst"`

	// TrustedProxies are the addresses allowed to set X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted-proxies"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

var defaults = map[string]interface{}{
	"listen":              ":8080",
	"upstream-url":        "http://localhost:8000/",
	"view-origin":         "",
	"catalog":             "catalog.yml",
	"placeholder":         "/resources/waiting.html",
	"heartbeat-period":    2000 * time.Millisecond,
	"warm-delay":          700 * time.Millisecond,
	"cold-delay":          1700 * time.Millisecond,
	"request-timeout":     30 * time.Second,
	"attach-timeout":      30 * time.Second,
	"max-tabs":            64,
	"max-upload-bytes":    int64(2 << 20),
	"rate-limit-per-hour": 600,
	"rate-limit-burst":    20,
	"trusted-proxies":     []string{},
	"log-level":           "info",
	"log-format":          "text",
}

// Default returns the built-in settings
func Default() *Config {
	v := newViper()
	var c Config
	// defaults always decode
	_ = v.Unmarshal(&c)
	return &c
}

// Load resolves the settings. path names a YAML file; when empty,
// deckard.yml is read from the working directory if it exists. flags, when
// given, override everything else.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	logger := logging.NewLogger("config")
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	} else {
		v.SetConfigName("deckard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("could not read config: %w", err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("could not bind flags: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("Config file loaded")
	}
	return &c, nil
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.UpstreamURL)
	if c.UpstreamURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return deckerr.ConfigInvalid(fmt.Sprintf("upstream-url %q must be an http(s) URL", c.UpstreamURL))
	}
	if c.Listen == "" {
		return deckerr.ConfigInvalid("listen address is required")
	}
	if c.HeartbeatPeriod <= 0 {
		return deckerr.ConfigInvalid("heartbeat-period must be positive")
	}
	if c.WarmDelay < 0 {
		return deckerr.ConfigInvalid("warm-delay cannot be negative")
	}
	if c.ColdDelay <= c.WarmDelay {
		return deckerr.ConfigInvalid(fmt.Sprintf("cold-delay (%s) must exceed warm-delay (%s)", c.ColdDelay, c.WarmDelay))
	}
	if c.RequestTimeout <= 0 || c.AttachTimeout <= 0 {
		return deckerr.ConfigInvalid("timeouts must be positive")
	}
	if c.MaxTabs <= 0 {
		return deckerr.ConfigInvalid("max-tabs must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return deckerr.ConfigInvalid("max-upload-bytes must be positive")
	}
	if c.RatePerHour <= 0 || c.RateBurst <= 0 {
		return deckerr.ConfigInvalid("rate limits must be positive")
	}
	for _, addr := range c.TrustedProxies {
		if net.ParseIP(addr) == nil {
			return deckerr.ConfigInvalid(fmt.Sprintf("trusted proxy %q is not an IP address", addr))
		}
	}
	switch c.LogFormat {
	case "text", "json", "simple":
	default:
		return deckerr.ConfigInvalid(fmt.Sprintf("unknown log-format %q", c.LogFormat))
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}
