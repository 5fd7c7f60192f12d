package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/asad/azstorage/internal/storage/azure"
)

// EnvPrefix is prepended to every setting read from the environment.
const EnvPrefix = "AZSTORAGE"

// Config holds the application configuration resolved from flags, the
// environment and an optional config file, in that order of precedence.
type Config struct {
	// AccountName is the Azure storage account.
	// Env: AZSTORAGE_ACCOUNT_NAME or AZURE_ACCOUNT_NAME
	AccountName string `mapstructure:"account_name"`

	// AccountKey is the shared key for AccountName.
	// Env: AZSTORAGE_ACCOUNT_KEY or AZURE_ACCOUNT_KEY
	AccountKey string `mapstructure:"account_key"`

	// Container is the blob container every name lives in.
	// Env: AZSTORAGE_CONTAINER or AZURE_CONTAINER
	Container string `mapstructure:"container"`

	// MediaURL is the public URL prefix used to build blob URLs.
	// Env: AZSTORAGE_MEDIA_URL or MEDIA_URL
	MediaURL string `mapstructure:"media_url"`

	// Endpoint overrides the blob service URL (Azurite, sovereign clouds or
	// file:// for a local directory).
	Endpoint string `mapstructure:"endpoint"`

	// MaxUploadSize is the largest content Save accepts, in bytes.
	// Default: 64 MiB
	MaxUploadSize int64 `mapstructure:"max_upload_size"`

	// HTTPPort is where the media gateway listens.
	// Default: 8080
	HTTPPort int `mapstructure:"http_port"`

	// LogLevel controls the verbosity of logging (debug, info, warn, error).
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`
}

// legacyEnv lists the process-wide variable names accepted besides the
// prefixed ones.
var legacyEnv = map[string]string{
	"account_name": "AZURE_ACCOUNT_NAME",
	"account_key":  "AZURE_ACCOUNT_KEY",
	"container":    "AZURE_CONTAINER",
	"media_url":    "MEDIA_URL",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("account_name", "")
	v.SetDefault("account_key", "")
	v.SetDefault("container", "")
	v.SetDefault("media_url", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("max_upload_size", azure.DefaultMaxUploadSize)
	v.SetDefault("http_port", 8080)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		// Explicit names bypass the prefix, so list the prefixed one first.
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), legacy)
	}
}

// ReadFile loads path into v. An empty path searches for azstorage.{yaml,toml,json}
// in the working directory and tolerates its absence.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("azstorage")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load resolves a Config from v. Call SetDefaults first.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Azure returns the adapter configuration.
func (c *Config) Azure() azure.Config {
	return azure.Config{
		AccountName:   c.AccountName,
		AccountKey:    c.AccountKey,
		Container:     c.Container,
		MediaURL:      c.MediaURL,
		Endpoint:      c.Endpoint,
		MaxUploadSize: c.MaxUploadSize,
	}
}

// Validate performs basic validation on the configuration.
// Returns an error if any invalid settings are detected.
func (c *Config) Validate() error {
	if err := c.Azure().Validate(); err != nil {
		return err
	}
	if c.HTTPPort <= 0 || c.HTTPPort >= 65536 {
		return fmt.Errorf("invalid http_port: %d (must be 1-65535)", c.HTTPPort)
	}
	return nil
}
