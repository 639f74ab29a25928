package scoreproto

import "fmt"

// Reasons a frame is rejected.
const (
	ReasonEmptyFrame  = "empty_frame"
	ReasonBadJSON     = "bad_json"
	ReasonMissingType = "missing_type"
	ReasonBadPayload  = "bad_payload"
)

// ProtocolError marks an inbound frame that could not be decoded. It never
// carries state changes; callers log it and keep going.
type ProtocolError struct {
	Reason string
	Type   string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Reason
	if e.Type != "" {
		msg += fmt.Sprintf(" (type=%s)", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }
