package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mbeoliero/nexochat/pkg/constant"
)

// EnvPrefix prefixes environment overrides, e.g. NEXOCHAT_API_BASE_URL
const EnvPrefix = "NEXOCHAT"

// Config holds all configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Client   ClientConfig   `mapstructure:"client"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// APIConfig holds REST configuration
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PageSize     int           `mapstructure:"page_size"`
	SeparatorGap time.Duration `mapstructure:"separator_gap"`
}

// RealtimeConfig holds message bus configuration
type RealtimeConfig struct {
	URL               string        `mapstructure:"url"`
	Host              string        `mapstructure:"host"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	HeartbeatIncoming time.Duration `mapstructure:"heartbeat_incoming"`
	HeartbeatOutgoing time.Duration `mapstructure:"heartbeat_outgoing"`
	UserDestination   string        `mapstructure:"user_destination"`
}

// ClientConfig holds client-side behaviour
type ClientConfig struct {
	IdGenerator    string        `mapstructure:"id_generator"`
	MachineId      uint16        `mapstructure:"machine_id"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
}

// MetricsConfig holds metrics exposure configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load loads configuration from file. An empty path or a missing file falls
// back to defaults and environment overrides. A .env file in the working
// directory is applied first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// bindEnv registers keys so AutomaticEnv also works for values absent from the file
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"api.base_url", "api.timeout", "api.page_size", "api.separator_gap",
		"realtime.url", "realtime.host", "realtime.reconnect_delay",
		"realtime.heartbeat_incoming", "realtime.heartbeat_outgoing", "realtime.user_destination",
		"client.id_generator", "client.machine_id", "client.search_debounce",
		"metrics.enabled", "metrics.addr",
	} {
		_ = v.BindEnv(key)
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://127.0.0.1:8090"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = constant.DefaultRequestTimeout
	}
	if cfg.API.PageSize == 0 {
		cfg.API.PageSize = constant.DefaultPageSize
	}
	if cfg.API.SeparatorGap == 0 {
		cfg.API.SeparatorGap = constant.DefaultSeparatorGap
	}
	if cfg.Realtime.URL == "" {
		cfg.Realtime.URL = "ws://127.0.0.1:8090/ws/websocket"
	}
	if cfg.Realtime.Host == "" {
		cfg.Realtime.Host = "/"
	}
	if cfg.Realtime.ReconnectDelay == 0 {
		cfg.Realtime.ReconnectDelay = constant.DefaultReconnectDelay
	}
	if cfg.Realtime.HeartbeatIncoming == 0 {
		cfg.Realtime.HeartbeatIncoming = constant.DefaultHeartbeatIncoming
	}
	if cfg.Realtime.HeartbeatOutgoing == 0 {
		cfg.Realtime.HeartbeatOutgoing = constant.DefaultHeartbeatOutgoing
	}
	if cfg.Realtime.UserDestination == "" {
		cfg.Realtime.UserDestination = constant.UserMessageDestination
	}
	if cfg.Client.IdGenerator == "" {
		cfg.Client.IdGenerator = "uuid"
	}
	if cfg.Client.MachineId == 0 {
		cfg.Client.MachineId = 1
	}
	if cfg.Client.SearchDebounce == 0 {
		cfg.Client.SearchDebounce = constant.DefaultSearchDebounce
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = "127.0.0.1:9464"
	}
}
