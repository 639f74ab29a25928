package session

import (
	"errors"
	"fmt"

	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/internal/livews"
)

var (
	// ErrNotConnected is the connection error: the transport is not OPEN.
	ErrNotConnected       = livews.ErrNotConnected
	ErrGameNotStarted     = errors.New("game has not started")
	ErrGameAlreadyStarted = errors.New("game already in progress")
	ErrGameOver           = errors.New("game is over")
)

func invalidOutcome(input string) error {
	return &lineup.ValidationError{
		Code:    lineup.CodeInvalidOutcome,
		Message: fmt.Sprintf("invalid outcome %q", input),
	}
}

func invalidBase(input string) error {
	return &lineup.ValidationError{
		Code:    lineup.CodeInvalidBase,
		Message: fmt.Sprintf("invalid base %q", input),
	}
}
