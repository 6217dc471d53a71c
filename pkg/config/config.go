package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/takutakahashi/cogs/pkg/cogs/translation"
	"github.com/takutakahashi/cogs/pkg/engine"
)

const (
	// EnvPrefix prefixes every environment variable read through viper
	EnvPrefix = "COGS"

	// SubscriptionKeyEnv is the conventional variable holding an Azure subscription key
	SubscriptionKeyEnv = "AZURE_SUBSCRIPTION_KEY"
)

// ErrMissingSubscriptionKey is returned by Validate when no key was configured
var ErrMissingSubscriptionKey = fmt.Errorf("subscription key is required (use --subscription-key or set %s)", SubscriptionKeyEnv)

// Config represents the client configuration
type Config struct {
	// SubscriptionKey is exchanged for bearer tokens
	SubscriptionKey string `json:"subscription_key" mapstructure:"subscription_key"`
	// TokenURL is the token issuing endpoint
	TokenURL string `json:"token_url" mapstructure:"token_url"`
	// TranslateURL is the Translate endpoint
	TranslateURL string `json:"translate_url" mapstructure:"translate_url"`
	// Timeout bounds each HTTP call
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// RenewalTimeout bounds a token renewal, independent of any caller
	RenewalTimeout time.Duration `json:"renewal_timeout" mapstructure:"renewal_timeout"`
	// Listen is the address of the serve command
	Listen  string `json:"listen" mapstructure:"listen"`
	Verbose bool   `json:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		TokenURL:       engine.DefaultTokenURL,
		TranslateURL:   translation.DefaultURL,
		Timeout:        30 * time.Second,
		RenewalTimeout: engine.DefaultRenewalTimeout,
		Listen:         ":8080",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("subscription_key", d.SubscriptionKey)
	v.SetDefault("token_url", d.TokenURL)
	v.SetDefault("translate_url", d.TranslateURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("renewal_timeout", d.RenewalTimeout)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("verbose", d.Verbose)
}

// Load resolves the configuration from defaults, the optional file at path,
// the environment and any flags already bound to v, in increasing order of
// precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("subscription_key", EnvPrefix+"_SUBSCRIPTION_KEY", SubscriptionKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if path != "" {
		settings, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
		log.Printf("[CONFIG] Loaded %d settings from %s", len(settings), path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ReadFile decodes a YAML, TOML or JSON config file, chosen by extension
func ReadFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings := make(map[string]interface{})
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	case ".toml":
		err = toml.Unmarshal(data, &settings)
	case ".json":
		err = json.Unmarshal(data, &settings)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks that the configuration can build an engine
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SubscriptionKey) == "" {
		errs = append(errs, ErrMissingSubscriptionKey)
	}
	for name, raw := range map[string]string{"token_url": c.TokenURL, "translate_url": c.TranslateURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RenewalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("renewal_timeout must be positive, got %s", c.RenewalTimeout))
	}
	return errors.Join(errs...)
}
