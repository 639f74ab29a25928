package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Direction string

const (
	DirIn  Direction = "in"
	DirOut Direction = "out"
)

// Record is one wire frame as it crossed the connection.
type Record struct {
	At        time.Time       `json:"at"`
	SessionID string          `json:"session"`
	Direction Direction       `json:"dir"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// NewRecord wraps raw frame bytes. Frames that are not valid JSON are kept
// as a JSON string so the record itself always encodes.
func NewRecord(sessionID string, dir Direction, kind string, data []byte) Record {
	raw := json.RawMessage(data)
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		raw = quoted
	}
	return Record{At: time.Now().UTC(), SessionID: sessionID, Direction: dir, Type: kind, Data: raw}
}

type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

type nop struct{}

func (nop) Write(context.Context, Record) error { return nil }
func (nop) Close() error                        { return nil }

// Nop discards everything.
func Nop() Sink { return nop{} }

type multi []Sink

// Multi fans a record out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
