package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type JoinRate struct {
	Limit    int           `mapstructure:"limit" validate:"min=0"`
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
}

type History struct {
	Driver     string `mapstructure:"driver" validate:"oneof=none memory badger sqlite"`
	Path       string `mapstructure:"path" validate:"required_if=Driver badger,required_if=Driver sqlite"`
	Buffer     int    `mapstructure:"buffer" validate:"min=0"`
	FetchLimit int    `mapstructure:"fetch_limit" validate:"gt=0"`
}

type Config struct {
	Mode     string `mapstructure:"mode" validate:"oneof=debug release test"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`

	Secret string `mapstructure:"secret" validate:"required"`
	Issuer string `mapstructure:"issuer"`

	ReadLimit      int64         `mapstructure:"read_limit" validate:"gt=0"`
	PingPeriod     time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	PongWait       time.Duration `mapstructure:"pong_wait" validate:"gtfield=PingPeriod"`
	WriteWait      time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	OutboxLimit    int           `mapstructure:"outbox_limit" validate:"min=0"`
	Backpressure   string        `mapstructure:"backpressure" validate:"oneof=kick drop"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" validate:"min=1"`

	JoinRate JoinRate `mapstructure:"join_rate"`
	History  History  `mapstructure:"history"`
}

var validate = validator.New()

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Values from
// .env and SKETCH_* environment variables override the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg(".env not loaded")
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load for an explicit file. A missing file is not an error:
// defaults and the environment still apply.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("SKETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("history", cfg.History.Driver).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("issuer", "sketch")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("outbox_limit", 0)
	v.SetDefault("backpressure", "kick")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("join_rate.limit", 0)
	v.SetDefault("join_rate.interval", "1m")
	v.SetDefault("history.driver", "none")
	v.SetDefault("history.path", "")
	v.SetDefault("history.buffer", 1024)
	v.SetDefault("history.fetch_limit", 500)
}
