package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/store"
	"github.com/tailored-agentic-units/studyplan/webapp"
)

// settings is the merged view of flags, STUDYPLAN_* variables and the env
// file, in that order of precedence.
type settings struct {
	Config    string `mapstructure:"config"`
	Verbose   bool   `mapstructure:"verbose"`
	LogFormat string `mapstructure:"log_format"`

	SecretKey              string        `mapstructure:"secret_key"`
	EncryptionKey          string        `mapstructure:"encryption_key"`
	EncryptionFallbackKeys []string      `mapstructure:"encryption_fallback_keys"`
	TokenTTL               time.Duration `mapstructure:"token_ttl"`

	Addr        string        `mapstructure:"addr"`
	Database    string        `mapstructure:"database"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RuntimeURL  string        `mapstructure:"runtime_url"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	Streaming   bool          `mapstructure:"streaming"`

	RuntimeAddr string `mapstructure:"runtime_addr"`
	AppName     string `mapstructure:"app_name"`

	APIKey string `mapstructure:"api_key"`
}

var (
	v   = viper.New()
	cfg settings
)

func init() {
	web := webapp.DefaultConfig()
	v.SetDefault("log_format", "text")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("addr", web.Addr)
	v.SetDefault("database", store.DefaultConfig().Path)
	v.SetDefault("cors_origins", web.CORSOrigins)
	v.SetDefault("runtime_url", bridge.DefaultBaseURL)
	v.SetDefault("send_timeout", bridge.DefaultTimeout)
	v.SetDefault("runtime_addr", "127.0.0.1:8081")
	v.SetDefault("app_name", bridge.DefaultAppName)

	v.SetEnvPrefix("STUDYPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Keys without a default must be bound to be seen by Unmarshal.
	for _, key := range []string{"secret_key", "encryption_key", "encryption_fallback_keys", "redis_addr", "streaming"} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("api_key", "STUDYPLAN_API_KEY", "GOOGLE_API_KEY")
}

// bindFlags exposes every flag of cmd under its snake_case key.
func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return err
}

func loadSettings(cmd *cobra.Command) error {
	if err := bindFlags(cmd); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("env_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	return nil
}

// kernelConfig loads --config over the defaults, or returns the defaults.
func kernelConfig() (*kernel.Config, error) {
	if cfg.Config == "" {
		c := kernel.DefaultConfig()
		return &c, nil
	}
	return kernel.LoadConfig(cfg.Config)
}
