package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS score_journal (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    direction TEXT NOT NULL,
    msg_type TEXT NOT NULL,
    payload JSONB NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL
)`

// PostgresSink stores frames in score_journal for later replay.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(databaseURL string) (*PostgresSink, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (p *PostgresSink) Write(ctx context.Context, rec Record) error {
	if p == nil || p.db == nil {
		return nil
	}
	q := `INSERT INTO score_journal (session_id, direction, msg_type, payload, recorded_at)
      VALUES ($1,$2,$3,$4,$5)`
	_, err := p.db.ExecContext(ctx, q, rec.SessionID, string(rec.Direction), rec.Type, string(rec.Data), rec.At)
	return err
}

func (p *PostgresSink) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
