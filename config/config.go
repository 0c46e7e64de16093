package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"snakepit/room"
)

type Config struct {
	Addr              string
	GridSize          int
	MinPlayers        int
	MaxPlayers        int
	StartDelay        time.Duration
	GameDuration      time.Duration
	FinishGrace       time.Duration
	PracticeDuration  time.Duration
	PracticeReward    float64
	SettlementTimeout time.Duration
	MoveRate          float64
	MoveBurst         int
	LedgerDSN         string // empty disables settlement
	AllowedOrigin     string
	LogLevel          slog.Level
}

func Defaults() Config {
	s := room.DefaultSettings()
	return Config{
		Addr:              ":8080",
		GridSize:          s.GridSize,
		MinPlayers:        s.MinPlayers,
		MaxPlayers:        s.MaxPlayers,
		StartDelay:        s.StartDelay,
		GameDuration:      s.GameDuration,
		FinishGrace:       s.FinishGrace,
		PracticeDuration:  s.PracticeDuration,
		PracticeReward:    s.PracticeReward,
		SettlementTimeout: 30 * time.Second,
		MoveRate:          20,
		MoveBurst:         5,
		LedgerDSN:         "data/ledger.db",
		LogLevel:          slog.LevelInfo,
	}
}

// InitConfig loads a .env file if one exists. A missing file is fine; the
// process environment still applies.
func InitConfig() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// Load reads .env and the environment on top of Defaults.
func Load() (Config, error) {
	if err := InitConfig(); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Defaults()
	var errs []error
	str := func(key string, dst *string) {
		if v, err := GetEnvVariable(key); err == nil {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		v, err := GetEnvVariable(key)
		if err != nil {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v, err := GetEnvVariable(key)
		if err != nil {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	float := func(key string, dst *float64) {
		v, err := GetEnvVariable(key)
		if err != nil {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}

	str("ADDR", &cfg.Addr)
	integer("GRID_SIZE", &cfg.GridSize)
	integer("MIN_PLAYERS", &cfg.MinPlayers)
	integer("MAX_PLAYERS", &cfg.MaxPlayers)
	duration("START_DELAY", &cfg.StartDelay)
	duration("GAME_DURATION", &cfg.GameDuration)
	duration("FINISH_GRACE", &cfg.FinishGrace)
	duration("PRACTICE_DURATION", &cfg.PracticeDuration)
	float("PRACTICE_REWARD", &cfg.PracticeReward)
	duration("SETTLEMENT_TIMEOUT", &cfg.SettlementTimeout)
	float("MOVE_RATE", &cfg.MoveRate)
	integer("MOVE_BURST", &cfg.MoveBurst)
	str("ALLOWED_ORIGIN", &cfg.AllowedOrigin)

	// LEDGER_DSN may be set to empty on purpose
	if v, ok := os.LookupEnv("LEDGER_DSN"); ok {
		cfg.LedgerDSN = v
	}
	if v, err := GetEnvVariable("LOG_LEVEL"); err == nil {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.GridSize <= 0:
		return fmt.Errorf("GRID_SIZE must be positive, got %d", c.GridSize)
	case c.MinPlayers < 1:
		return fmt.Errorf("MIN_PLAYERS must be at least 1, got %d", c.MinPlayers)
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("MAX_PLAYERS (%d) below MIN_PLAYERS (%d)", c.MaxPlayers, c.MinPlayers)
	case c.StartDelay < 0 || c.GameDuration <= 0 || c.FinishGrace < 0:
		return fmt.Errorf("invalid durations: start=%s game=%s grace=%s", c.StartDelay, c.GameDuration, c.FinishGrace)
	case c.PracticeDuration <= 0 || c.PracticeReward < 0:
		return fmt.Errorf("invalid practice settings: duration=%s reward=%v", c.PracticeDuration, c.PracticeReward)
	case c.MoveRate <= 0 || c.MoveBurst <= 0:
		return fmt.Errorf("move limit must be positive, got rate=%v burst=%d", c.MoveRate, c.MoveBurst)
	}
	return nil
}

func (c Config) RoomSettings() room.Settings {
	return room.Settings{
		GridSize:         c.GridSize,
		MinPlayers:       c.MinPlayers,
		MaxPlayers:       c.MaxPlayers,
		StartDelay:       c.StartDelay,
		GameDuration:     c.GameDuration,
		FinishGrace:      c.FinishGrace,
		PracticeDuration: c.PracticeDuration,
		PracticeReward:   c.PracticeReward,
	}
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}

	return b, nil

}
