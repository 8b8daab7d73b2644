package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultDelegateTimeout = 5 * time.Second
	DefaultHistoryCap      = 100
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Delegate DelegateConfig `mapstructure:"delegate"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
	History  HistoryConfig  `mapstructure:"history"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// DelegateConfig n8n webhook 委派配置，webhook_url 为空时走纯本地回复
type DelegateConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
	Cap  int    `mapstructure:"cap"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RYZE")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if cfg.Delegate.WebhookURL == "" {
		if url := os.Getenv("N8N_WEBHOOK_URL"); url != "" {
			cfg.Delegate.WebhookURL = url
		}
	}

	if cfg.Delegate.Timeout <= 0 {
		cfg.Delegate.Timeout = DefaultDelegateTimeout
	}
	if cfg.History.Cap <= 0 {
		cfg.History.Cap = DefaultHistoryCap
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
