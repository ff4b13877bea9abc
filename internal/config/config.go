package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vincar/vinmcp/internal/vehicle"
)

// EnvPrefix namespaces the environment variables read by the server.
const EnvPrefix = "VINMCP"

// ServerConfig holds the settings for `vinmcp serve`.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	BaseURL     string        `mapstructure:"base-url"`
	VPICURL     string        `mapstructure:"vpic-url"`
	RecallsURL  string        `mapstructure:"recalls-url"`
	HTTPTimeout time.Duration `mapstructure:"http-timeout"`
}

// RegisterServerFlags adds the server flags with their defaults to f.
func RegisterServerFlags(f *pflag.FlagSet) {
	f.String("addr", ":8080", "address the SSE server listens on")
	f.String("base-url", "", "absolute base URL advertised to clients (optional)")
	f.String("vpic-url", vehicle.DefaultVPICURL, "NHTSA vPIC API base URL")
	f.String("recalls-url", vehicle.DefaultRecallsURL, "NHTSA recalls API base URL")
	f.Duration("http-timeout", 10*time.Second, "timeout for upstream NHTSA requests")
	f.String("config", "", "optional config file (yaml, json or toml)")
}

// LoadServer resolves the server config. Precedence, highest first: flags set
// on the command line, VINMCP_* environment variables, the config file, flag
// defaults.
func LoadServer(f *pflag.FlagSet) (*ServerConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(f); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr must not be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("http-timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	return &cfg, nil
}
