package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/baseball-scorekeeper/internal/lineup"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV_FILE", "SCORE_WS_URL", "SESSION_ID", "AWAY_TEAM_NAME", "HOME_TEAM_NAME",
		"LINEUP_SLOTS", "WS_MAX_RECONNECT", "WS_RECONNECT_DELAY_MS", "WS_PING_INTERVAL_SEC", "WS_READ_LIMIT",
		"RESEND_PENDING", "REDIS_URL", "DATABASE_URL", "JOURNAL_FILE", "STATUS_ADDR", "MSG_OVERRIDE_DIR",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadRequiresURL(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without SCORE_WS_URL")
	}

	t.Setenv("SCORE_WS_URL", "http://example.com/ws")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for http url")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("SCORE_WS_URL", "ws://localhost:8000/ws")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LineupSlots != 9 || cfg.MaxReconnect != 5 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.ReconnectDelay != 500*time.Millisecond || cfg.PingInterval != 30*time.Second {
		t.Fatalf("durations: %+v", cfg)
	}
	if !cfg.ResendPending {
		t.Fatalf("ResendPending should default to true")
	}
	if cfg.AwayName != lineup.DefaultAwayName || cfg.HomeName != lineup.DefaultHomeName {
		t.Fatalf("names: %+v", cfg)
	}
	if cfg.LineupSlots != lineup.DefaultSlots {
		t.Fatalf("slots: %d", cfg.LineupSlots)
	}
}

func TestLoadOverridesAndIgnoresGarbage(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("SCORE_WS_URL", "wss://score.example/ws")
	t.Setenv("LINEUP_SLOTS", "3")
	t.Setenv("WS_MAX_RECONNECT", "0")
	t.Setenv("WS_RECONNECT_DELAY_MS", "abc")
	t.Setenv("WS_PING_INTERVAL_SEC", "0")
	t.Setenv("WS_READ_LIMIT", "65536")
	t.Setenv("RESEND_PENDING", "false")
	t.Setenv("AWAY_TEAM_NAME", " 타이거즈 ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LineupSlots != 3 || cfg.MaxReconnect != 0 || cfg.PingInterval != 0 {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.ReconnectDelay != 500*time.Millisecond {
		t.Fatalf("garbage delay should keep default: %v", cfg.ReconnectDelay)
	}
	if cfg.ResendPending {
		t.Fatalf("ResendPending should be false")
	}
	if cfg.ReadLimit != 65536 {
		t.Fatalf("ReadLimit = %d", cfg.ReadLimit)
	}
	if cfg.AwayName != "타이거즈" {
		t.Fatalf("away = %q", cfg.AwayName)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	body := "SCORE_WS_URL=ws://from-file/ws\nSESSION_ID=game-7\nHOME_TEAM_NAME=Bears\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HOME_TEAM_NAME", "Twins")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSURL != "ws://from-file/ws" || cfg.SessionID != "game-7" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.HomeName != "Twins" {
		t.Fatalf("process env must win over .env: %q", cfg.HomeName)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("ENV_FILE", "nope.env")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing ENV_FILE")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
