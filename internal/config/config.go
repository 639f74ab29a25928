package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/baseball-scorekeeper/internal/lineup"
)

type AppConfig struct {
	WSURL     string
	SessionID string

	AwayName    string
	HomeName    string
	LineupSlots int

	MaxReconnect   int
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
	ResendPending  bool

	RedisURL    string
	DatabaseURL string
	JournalFile string

	StatusAddr     string
	MsgOverrideDir string
}

// LoadEnvFile는 ENV_FILE(없으면 .env)을 읽어 환경변수에 채운다.
// 이미 설정된 값은 덮어쓰지 않는다. 기본 .env가 없으면 조용히 넘어간다.
func LoadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() (*AppConfig, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		AwayName:       lineup.DefaultAwayName,
		HomeName:       lineup.DefaultHomeName,
		LineupSlots:    lineup.DefaultSlots,
		MaxReconnect:   5,
		ReconnectDelay: 500 * time.Millisecond,
		PingInterval:   30 * time.Second,
		ResendPending:  true,
	}

	cfg.WSURL = strings.TrimSpace(os.Getenv("SCORE_WS_URL"))
	cfg.SessionID = strings.TrimSpace(os.Getenv("SESSION_ID"))

	if v := strings.TrimSpace(os.Getenv("AWAY_TEAM_NAME")); v != "" {
		cfg.AwayName = v
	}
	if v := strings.TrimSpace(os.Getenv("HOME_TEAM_NAME")); v != "" {
		cfg.HomeName = v
	}
	if v := strings.TrimSpace(os.Getenv("LINEUP_SLOTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LineupSlots = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_MAX_RECONNECT")); v != "" {
		// 0이면 재연결 안 함
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxReconnect = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_RECONNECT_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_PING_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PingInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_READ_LIMIT")); v != "" {
		// bytes; 0 keeps the websocket library default
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.ReadLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESEND_PENDING")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResendPending = b
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.JournalFile = strings.TrimSpace(os.Getenv("JOURNAL_FILE"))
	cfg.StatusAddr = strings.TrimSpace(os.Getenv("STATUS_ADDR"))
	cfg.MsgOverrideDir = strings.TrimSpace(os.Getenv("MSG_OVERRIDE_DIR"))

	if cfg.WSURL == "" {
		return nil, errors.New("SCORE_WS_URL is required")
	}
	if !strings.HasPrefix(cfg.WSURL, "ws://") && !strings.HasPrefix(cfg.WSURL, "wss://") {
		return nil, fmt.Errorf("SCORE_WS_URL must be a ws:// or wss:// url: %q", cfg.WSURL)
	}

	return cfg, nil
}
