package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	StaticPath  string        `mapstructure:"static_path"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	SendBuffer  int           `mapstructure:"send_buffer"`
	Secret      string        `mapstructure:"secret"`
	LogLevel    string        `mapstructure:"log_level"`
	CORSOrigins []string      `mapstructure:"cors_origins"`

	Game      GameConfig      `mapstructure:"game"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Questions QuestionsConfig `mapstructure:"questions"`
}

type GameConfig struct {
	QuestionTime   time.Duration `mapstructure:"question_time"`
	RevealTime     time.Duration `mapstructure:"reveal_time"`
	StartCountdown time.Duration `mapstructure:"start_countdown"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	EmptyRoomTTL   time.Duration `mapstructure:"empty_room_ttl"`
}

type ChatConfig struct {
	Rate      float64 `mapstructure:"rate"`
	Burst     int     `mapstructure:"burst"`
	MaxLength int     `mapstructure:"max_length"`
}

type QuestionsConfig struct {
	BankPath string `mapstructure:"bank_path"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). QUIZRUSH_*
// environment variables override file values, e.g. QUIZRUSH_GAME_QUESTION_TIME.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit file. A missing file leaves the defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("QUIZRUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "quizrush-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{})

	v.SetDefault("game.question_time", "20s")
	v.SetDefault("game.reveal_time", "2s")
	v.SetDefault("game.start_countdown", "3s")
	v.SetDefault("game.tick_interval", "1s")
	v.SetDefault("game.fetch_timeout", "5s")
	v.SetDefault("game.empty_room_ttl", "2m")

	v.SetDefault("chat.rate", 2)
	v.SetDefault("chat.burst", 5)
	v.SetDefault("chat.max_length", 500)

	v.SetDefault("questions.bank_path", "")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Game.TickInterval <= 0 {
		errs = append(errs, errors.New("game.tick_interval must be positive"))
	}
	if c.Game.QuestionTime < c.Game.TickInterval {
		errs = append(errs, errors.New("game.question_time must be at least one tick"))
	}
	if c.Game.RevealTime < 0 || c.Game.StartCountdown < 0 {
		errs = append(errs, errors.New("game durations must not be negative"))
	}
	if c.Chat.Burst < 1 || c.Chat.MaxLength < 1 {
		errs = append(errs, errors.New("chat.burst and chat.max_length must be positive"))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	return errors.Join(errs...)
}
