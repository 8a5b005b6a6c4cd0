package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Transform TransformConfig `mapstructure:"transform"`
	Server    ServerConfig    `mapstructure:"server"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
}

type StorageConfig struct {
	Path     string         `mapstructure:"path"`
	Memgraph MemgraphConfig `mapstructure:"memgraph"`
}

type MemgraphConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SourcesConfig struct {
	Terraform []TerraformSource `mapstructure:"terraform"`
}

type TerraformSource struct {
	Path string `mapstructure:"path"`
}

type TransformConfig struct {
	IncludeIgnored bool `mapstructure:"include_ignored"`
}

type ServerConfig struct {
	Listen     string  `mapstructure:"listen"`
	ReadOnly   bool    `mapstructure:"read_only"`
	APIToken   string  `mapstructure:"api_token"`
	CORSOrigin string  `mapstructure:"cors_origin"`
	RateLimit  float64 `mapstructure:"rate_limit"`
}

type ScanConfig struct {
	Schedule  string `mapstructure:"schedule"`
	OnStartup bool   `mapstructure:"on_startup"`
}

type AlertsConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
	Stdout  StdoutConfig  `mapstructure:"stdout"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type StdoutConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads the configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".tfcanon"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("tfcanon")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TFCANON")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("storage.path", "./data/tfcanon.db")
	viper.SetDefault("storage.memgraph.enabled", false)
	viper.SetDefault("storage.memgraph.uri", "bolt://localhost:7687")
	viper.SetDefault("transform.include_ignored", false)
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("server.rate_limit", 10)
	viper.SetDefault("scan.on_startup", true)
	viper.SetDefault("alerts.stdout.enabled", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
