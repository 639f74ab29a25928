package livews

import (
	"context"
	"errors"
)

// State is the connection lifecycle as observed by the session.
type State string

const (
	StateConnecting   State = "CONNECTING"
	StateOpen         State = "OPEN"
	StateReconnecting State = "RECONNECTING"
	StateClosed       State = "CLOSED"
)

// MessageCallback receives one raw text frame. Decoding is the caller's job
// so a malformed frame never takes the read loop down.
type MessageCallback func(data []byte)

type StateCallback func(state State)

// ErrorCallback is a side channel: it reports transport errors without
// implying a state transition.
type ErrorCallback func(err error)

// HeaderProvider injects handshake headers.
type HeaderProvider func() map[string]string

var ErrNotConnected = errors.New("websocket not connected")

// Client is the transport surface the session depends on.
type Client interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, v any) error
	State() State
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	OnError(cb ErrorCallback) int
	RemoveErrorCallback(id int)
	Close(ctx context.Context) error
}
