package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("GRID_SIZE", "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.GridSize != 30 || cfg.MinPlayers != 2 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.GameDuration != 30*time.Second {
		t.Fatalf("game duration = %s", cfg.GameDuration)
	}
	if cfg.PracticeDuration != 3*time.Minute {
		t.Fatalf("practice duration = %s", cfg.PracticeDuration)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("GRID_SIZE", "40")
	t.Setenv("MAX_PLAYERS", "4")
	t.Setenv("START_DELAY", "500ms")
	t.Setenv("MOVE_RATE", "12.5")
	t.Setenv("LEDGER_DSN", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.GridSize != 40 || cfg.MaxPlayers != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.StartDelay != 500*time.Millisecond || cfg.MoveRate != 12.5 {
		t.Fatalf("start=%s rate=%v", cfg.StartDelay, cfg.MoveRate)
	}
	if cfg.LedgerDSN != "" {
		t.Fatalf("ledger dsn = %q, want disabled", cfg.LedgerDSN)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
	rs := cfg.RoomSettings()
	if rs.GridSize != 40 || rs.StartDelay != 500*time.Millisecond {
		t.Fatalf("room settings %+v", rs)
	}
}

func TestFromEnvPracticeSettings(t *testing.T) {
	t.Setenv("PRACTICE_DURATION", "90s")
	t.Setenv("PRACTICE_REWARD", "0.25")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	rs := cfg.RoomSettings()
	if rs.PracticeDuration != 90*time.Second || rs.PracticeReward != 0.25 {
		t.Fatalf("practice settings not applied: %+v", rs)
	}

	t.Setenv("PRACTICE_REWARD", "-1")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("negative practice reward accepted")
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("GRID_SIZE", "huge")
	t.Setenv("GAME_DURATION", "forever")
	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "GRID_SIZE") || !strings.Contains(err.Error(), "GAME_DURATION") {
		t.Fatalf("error should name both keys: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.MaxPlayers = 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("max below min accepted")
	}
}

func TestGetEnvVariable(t *testing.T) {
	if _, err := GetEnvVariable(""); err == nil {
		t.Fatalf("empty key accepted")
	}
	t.Setenv("SNAKEPIT_TEST_VAR", "x")
	if v, err := GetEnvVariable("SNAKEPIT_TEST_VAR"); err != nil || v != "x" {
		t.Fatalf("got %q, %v", v, err)
	}
}
