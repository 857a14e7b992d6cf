package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures cmd/notifywatch, the headless notification and
// admin-request watcher.
type ClientConfig struct {
	Backend  BackendConfig `mapstructure:"backend"`
	Socket   SocketConfig  `mapstructure:"socket"`
	Toasts   ToastConfig   `mapstructure:"toasts"`
	Refetch  RefetchConfig `mapstructure:"refetch"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Channels []string      `mapstructure:"channels"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SocketConfig struct {
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type ToastConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	Max int           `mapstructure:"max"`
}

type RefetchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type LoggingConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// LoadClient reads notifywatch.yaml from the usual places, then EARNAURA_*
// environment variables. A missing file is fine.
func LoadClient(paths ...string) (*ClientConfig, error) {
	v := viper.New()

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("socket.base_delay", "500ms")
	v.SetDefault("socket.max_delay", "30s")
	v.SetDefault("socket.handshake_timeout", "10s")
	v.SetDefault("toasts.ttl", "5s")
	v.SetDefault("toasts.max", 5)
	v.SetDefault("refetch.debounce", "250ms")
	v.SetDefault("logging.env", "dev")
	v.SetDefault("logging.level", "info")
	v.SetDefault("channels", []string{"notifications"})

	v.SetConfigName("notifywatch")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("EARNAURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an http(s) URL")
	}
	if strings.TrimSpace(c.Backend.Token) == "" {
		return fmt.Errorf("backend.token is required")
	}
	if c.Socket.BaseDelay <= 0 || c.Socket.MaxDelay < c.Socket.BaseDelay {
		return fmt.Errorf("socket.base_delay must be > 0 and <= socket.max_delay")
	}
	if c.Toasts.Max < 1 {
		return fmt.Errorf("toasts.max must be >= 1")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("channels must contain at least one channel")
	}
	return nil
}
