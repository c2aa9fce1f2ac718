package config

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidDelay      = errors.New("computer move delay must not be negative")
	ErrInvalidSessionTTL = errors.New("session ttl must be positive")
	ErrInvalidJanitor    = errors.New("janitor period must be positive")
	ErrEmptyListenAddr   = errors.New("listen address is empty")
)

const (
	defaultListenAddr        = ":8080"
	defaultComputerMoveDelay = 700 * time.Millisecond
	defaultSessionTTL        = 30 * time.Minute
	defaultJanitorPeriod     = time.Minute
	defaultLogLevel          = "info"
)

const (
	listenAddrEnv        = "SERVER_PORT"
	computerMoveDelayEnv = "COMPUTER_MOVE_DELAY"
	logLevelEnv          = "LOG_LEVEL"
)

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	JanitorPeriod time.Duration `yaml:"janitor_period"`
}

type config struct {
	ListenAddr        string        `yaml:"listen_addr"`
	ComputerMoveDelay time.Duration `yaml:"computer_move_delay"`
	LogLevel          string        `yaml:"log_level"`
	Session           SessionConfig `yaml:"session"`
}

func defaults() config {
	return config{
		ListenAddr:        defaultListenAddr,
		ComputerMoveDelay: defaultComputerMoveDelay,
		LogLevel:          defaultLogLevel,
		Session: SessionConfig{
			TTL:           defaultSessionTTL,
			JanitorPeriod: defaultJanitorPeriod,
		},
	}
}

// New reads the YAML file at cfgPath over the defaults, then applies
// environment overrides (a .env file next to the binary is loaded first if
// present).
func New(cfgPath string) (config, error) {
	cfg := defaults()
	file, err := os.Open(cfgPath)
	if err != nil {
		return config{}, err
	}
	defer func() {
		_ = file.Close()
	}()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, errors.WithMessagef(err, "decode config '%s'", cfgPath)
	}
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return config{}, errors.WithMessage(err, "apply environment")
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c *config) applyEnv() error {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(computerMoveDelayEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.WithMessagef(err, "parse %s", computerMoveDelayEnv)
		}
		c.ComputerMoveDelay = d
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c config) validate() error {
	switch {
	case c.ListenAddr == "":
		return ErrEmptyListenAddr
	case c.ComputerMoveDelay < 0:
		return ErrInvalidDelay
	case c.Session.TTL <= 0:
		return ErrInvalidSessionTTL
	case c.Session.JanitorPeriod <= 0:
		return ErrInvalidJanitor
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.WithMessage(err, "parse log level")
	}
	return nil
}

func (c config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
