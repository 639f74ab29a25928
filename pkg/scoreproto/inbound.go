package scoreproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound is one decoded server frame. The concrete type is one of
// *StateMsg, *LineupAck, *ResetAck, *AtBatAck, *End, *ServerError, *Unknown.
type Inbound interface {
	Kind() string
	inbound()
}

// StateMsg carries an authoritative snapshot.
type StateMsg struct {
	State State
}

// LineupAck confirms SET_LINEUP. The lineups echo what the server stored.
type LineupAck struct {
	AwayLineup []string
	HomeLineup []string
}

// ResetAck confirms RESET; it is broadcast to every connected client.
type ResetAck struct{}

// AtBatAck is the server's resolution of one AB command.
type AtBatAck struct {
	Batter string
	Result string
	Away   int
	Home   int
	Inning int
	Half   string
}

// End reports a finished game.
type End struct {
	Winner Team
	Away   int
	Home   int
}

// ServerError is an ERROR frame: the server rejected the previous command.
type ServerError struct {
	Message string
}

// Unknown is any frame with a type this client does not handle.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (*StateMsg) Kind() string    { return TypeState }
func (*LineupAck) Kind() string   { return TypeAck }
func (*ResetAck) Kind() string    { return TypeAck }
func (*AtBatAck) Kind() string    { return TypeAck }
func (*End) Kind() string         { return TypeEnd }
func (*ServerError) Kind() string { return TypeError }
func (u *Unknown) Kind() string   { return u.Type }

func (*StateMsg) inbound()    {}
func (*LineupAck) inbound()   {}
func (*ResetAck) inbound()    {}
func (*AtBatAck) inbound()    {}
func (*End) inbound()         {}
func (*ServerError) inbound() {}
func (*Unknown) inbound()     {}

type envelope struct {
	Type *string `json:"type"`
}

type ackWire struct {
	Msg        string   `json:"msg"`
	Batter     string   `json:"batter"`
	Result     string   `json:"result"`
	Away       int      `json:"away"`
	Home       int      `json:"home"`
	Inning     int      `json:"inning"`
	Half       string   `json:"half"`
	AwayLineup []string `json:"away_lineup"`
	HomeLineup []string `json:"home_lineup"`
}

type endWire struct {
	Winner string `json:"winner"`
	Away   int    `json:"away"`
	Home   int    `json:"home"`
}

type errorWire struct {
	Msg string `json:"msg"`
}

// Decode parses one text frame. Malformed frames return a *ProtocolError;
// well-formed frames of an unhandled type return *Unknown and no error.
func Decode(data []byte) (Inbound, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ProtocolError{Reason: ReasonEmptyFrame}
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &ProtocolError{Reason: ReasonBadJSON, Err: err}
	}
	if env.Type == nil || strings.TrimSpace(*env.Type) == "" {
		return nil, &ProtocolError{Reason: ReasonMissingType}
	}
	typ := strings.ToUpper(strings.TrimSpace(*env.Type))

	switch typ {
	case TypeState:
		var st State
		if err := json.Unmarshal(trimmed, &st); err != nil {
			return nil, &ProtocolError{Reason: ReasonBadPayload, Type: typ, Err: err}
		}
		if st.Runners == nil {
			st.Runners = []Base{}
		}
		return &StateMsg{State: st}, nil
	case TypeAck:
		var a ackWire
		if err := json.Unmarshal(trimmed, &a); err != nil {
			return nil, &ProtocolError{Reason: ReasonBadPayload, Type: typ, Err: err}
		}
		switch strings.ToUpper(strings.TrimSpace(a.Msg)) {
		case AckLineupSet:
			return &LineupAck{AwayLineup: a.AwayLineup, HomeLineup: a.HomeLineup}, nil
		case AckReset:
			return &ResetAck{}, nil
		}
		return &AtBatAck{
			Batter: a.Batter,
			Result: a.Result,
			Away:   a.Away,
			Home:   a.Home,
			Inning: a.Inning,
			Half:   a.Half,
		}, nil
	case TypeEnd:
		var e endWire
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, &ProtocolError{Reason: ReasonBadPayload, Type: typ, Err: err}
		}
		return &End{Winner: Team(strings.ToUpper(strings.TrimSpace(e.Winner))), Away: e.Away, Home: e.Home}, nil
	case TypeError:
		var e errorWire
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, &ProtocolError{Reason: ReasonBadPayload, Type: typ, Err: err}
		}
		return &ServerError{Message: e.Msg}, nil
	default:
		return &Unknown{Type: typ, Raw: append(json.RawMessage(nil), trimmed...)}, nil
	}
}

// ScoreLine formats a score as "<away> - <home>".
func ScoreLine(away, home int) string {
	return fmt.Sprintf("%d - %d", away, home)
}
