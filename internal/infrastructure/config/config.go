package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
	"go-robot-dashboard/internal/realtime"
)

const envPrefix = "ROBODASH"

var (
	ErrEmptyAddress       = errors.New("backend.address must not be empty")
	ErrNegativeAttempts   = errors.New("backend.reconnection_attempts must not be negative")
	ErrNonPositiveTimeout = errors.New("backend delays and timeouts must be positive")
	ErrEmptyHTTPAddress   = errors.New("http.address must not be empty")
)

// Config holds application configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig describes the robot backend link.
type BackendConfig struct {
	Address              string        `mapstructure:"address"`
	Reconnection         bool          `mapstructure:"reconnection"`
	ReconnectionAttempts int           `mapstructure:"reconnection_attempts"`
	ReconnectionDelay    time.Duration `mapstructure:"reconnection_delay"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	CatchAll             string        `mapstructure:"catch_all"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// RelayConfig lists the backend channels forwarded to widgets.
type RelayConfig struct {
	Channels []string `mapstructure:"channels"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment. Env var overrides use prefix ROBODASH_, so backend.address is
// ROBODASH_BACKEND_ADDRESS. The file is ROBODASH_CONFIG when set, otherwise
// ./robodash.yaml if present.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("robodash")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	policy := transport.DefaultOptions()
	logDefaults := logger.NewDefaultConfig()

	v.SetDefault("backend.address", "ws://ewolf.local:5005/ws")
	v.SetDefault("backend.reconnection", policy.Reconnection)
	v.SetDefault("backend.reconnection_attempts", policy.ReconnectionAttempts)
	v.SetDefault("backend.reconnection_delay", policy.ReconnectionDelay)
	v.SetDefault("backend.connect_timeout", policy.ConnectTimeout)
	v.SetDefault("backend.catch_all", string(realtime.CatchAllEvery))

	v.SetDefault("http.address", ":8080")
	v.SetDefault("relay.channels", realtime.KnownChannels())

	v.SetDefault("log.level", logDefaults.Level.String())
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.output", logDefaults.Output)
	v.SetDefault("log.file_path", "logs/robodash.log")
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.compress", logDefaults.Compress)
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values for lists arrive as one comma separated string
	c.Relay.Channels = splitList(strings.Join(c.Relay.Channels, ","))
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.Address) == "" {
		return ErrEmptyAddress
	}
	if c.Backend.ReconnectionAttempts < 0 {
		return ErrNegativeAttempts
	}
	if c.Backend.ReconnectionDelay <= 0 {
		return fmt.Errorf("%w: reconnection_delay=%s", ErrNonPositiveTimeout, c.Backend.ReconnectionDelay)
	}
	if c.Backend.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect_timeout=%s", ErrNonPositiveTimeout, c.Backend.ConnectTimeout)
	}
	if _, err := realtime.ParseCatchAllMode(c.Backend.CatchAll); err != nil {
		return err
	}
	if strings.TrimSpace(c.HTTP.Address) == "" {
		return ErrEmptyHTTPAddress
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Policy converts the backend settings into a transport reconnection policy.
func (c Config) Policy() transport.Options {
	return transport.NewOptions(
		transport.WithReconnection(c.Backend.Reconnection),
		transport.WithReconnectionAttempts(c.Backend.ReconnectionAttempts),
		transport.WithReconnectionDelay(c.Backend.ReconnectionDelay),
		transport.WithConnectTimeout(c.Backend.ConnectTimeout),
	)
}

func (c Config) Client() realtime.Config {
	return realtime.Config{
		Address:  c.Backend.Address,
		Policy:   c.Policy(),
		CatchAll: realtime.CatchAllMode(c.Backend.CatchAll),
	}
}

// Logger builds the logger configuration. Level strings were checked by
// Validate; an unknown one falls back to info.
func (c Config) Logger() *logger.Config {
	lc := logger.NewDefaultConfig()
	if level, err := logger.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format
	lc.Output = c.Log.Output
	lc.FilePath = c.Log.FilePath
	lc.MaxSize = c.Log.MaxSize
	lc.MaxBackups = c.Log.MaxBackups
	lc.MaxAge = c.Log.MaxAge
	lc.Compress = c.Log.Compress
	return lc
}
