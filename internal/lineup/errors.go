package lineup

import (
	"errors"
	"fmt"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

// Validation codes.
const (
	CodeEmptyLineup    = "EMPTY_LINEUP"
	CodeInvalidOutcome = "INVALID_OUTCOME"
	CodeInvalidBase    = "INVALID_BASE"
)

// ValidationError blocks an operator action before anything is sent.
type ValidationError struct {
	Code    string
	Team    scoreproto.Team
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Team != "" {
		return fmt.Sprintf("validation error: %s (%s)", e.Code, e.Team)
	}
	return "validation error: " + e.Code
}

// Is matches on Code so errors.Is(err, ErrEmptyLineup) works for any team.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyLineup  = &ValidationError{Code: CodeEmptyLineup}
	ErrLineupFrozen = errors.New("lineup is frozen while a game is in progress")
	ErrUnknownTeam  = errors.New("unknown team")
)

// EmptyLineup builds an EMPTY_LINEUP error for team.
func EmptyLineup(team scoreproto.Team) error {
	return &ValidationError{Code: CodeEmptyLineup, Team: team}
}
