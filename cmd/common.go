package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/takutakahashi/cogs/pkg/config"
	"github.com/takutakahashi/cogs/pkg/engine"
	"github.com/takutakahashi/cogs/pkg/logger"
	"github.com/takutakahashi/cogs/pkg/utils"
)

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"subscription-key": "subscription_key",
	"token-url":        "token_url",
	"translate-url":    "translate_url",
	"timeout":          "timeout",
	"renewal-timeout":  "renewal_timeout",
	"verbose":          "verbose",
	"listen":           "listen",
}

func addCommonFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringP("subscription-key", "s", "", fmt.Sprintf("Azure subscription key. Defaults to environment variable %s if set.", config.SubscriptionKeyEnv))
	flags.StringP("config", "c", "", "Configuration file path (yaml, toml or json)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("token-url", defaults.TokenURL, "Token issuing endpoint")
	flags.String("translate-url", defaults.TranslateURL, "Translate endpoint")
	flags.Duration("timeout", defaults.Timeout, "Timeout for each HTTP call")
	flags.Duration("renewal-timeout", defaults.RenewalTimeout, "Timeout for a token renewal")
}

// loadConfig resolves the configuration for cmd. Flags set on the command
// line override the environment, which overrides the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind %s flag: %w", flag, err)
		}
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and installs the command's logger as the
// process default. The --verbose flag applies while the config is loaded;
// verbose set in the environment or the file applies from then on.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, nil, err
	}
	logger.Install(logger.New(cmd.ErrOrStderr(), verbose))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	// configuration errors above still print usage, runtime ones below don't
	cmd.SilenceUsage = true

	log := logger.New(cmd.ErrOrStderr(), cfg.Verbose)
	logger.Install(log)
	return cfg, log, nil
}

// newEngine builds an engine around a keep-alive client. recorder may be nil.
func newEngine(cfg *config.Config, log *slog.Logger, recorder engine.Recorder) *engine.Engine {
	client := utils.NewHTTPClient(utils.HTTPClientConfig{
		Timeout:             cfg.Timeout,
		MaxIdleConnsPerHost: utils.DefaultHTTPClientConfig().MaxIdleConnsPerHost,
	})

	opts := []engine.Option{
		engine.WithTokenURL(cfg.TokenURL),
		engine.WithRenewalTimeout(cfg.RenewalTimeout),
		engine.WithLogger(log),
	}
	if recorder != nil {
		opts = append(opts, engine.WithRecorder(recorder))
	}

	creds := engine.NewCredentials(engine.SubscriptionKey(cfg.SubscriptionKey))
	log.Debug("[ENGINE] created", "subscription_key", creds.SubscriptionKey(), "token_url", cfg.TokenURL)
	return engine.New(creds, client, opts...)
}
