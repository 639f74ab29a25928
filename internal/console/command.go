package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

type Kind string

const (
	CmdLineup  Kind = "lineup"
	CmdAdd     Kind = "add"
	CmdRemove  Kind = "rm"
	CmdSet     Kind = "set"
	CmdTeam    Kind = "team"
	CmdStart   Kind = "start"
	CmdAtBat   Kind = "ab"
	CmdScore   Kind = "score"
	CmdRunners Kind = "runners"
	CmdReset   Kind = "reset"
	CmdHistory Kind = "history"
	CmdHelp    Kind = "help"
	CmdQuit    Kind = "quit"
)

// Command is one parsed operator line. Index is zero-based.
type Command struct {
	Kind    Kind
	Team    scoreproto.Team
	Index   int
	Name    string
	Outcome scoreproto.Outcome
	Runners []scoreproto.Base
}

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownTeam    = errors.New("unknown team")
)

// InputError reports an argument that could not be parsed.
type InputError struct {
	Code  string
	Input string
}

func (e *InputError) Error() string { return fmt.Sprintf("%s: %q", e.Code, e.Input) }

// UsageError carries the expected form of a command.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

const (
	CodeInvalidOutcome = "INVALID_OUTCOME"
	CodeInvalidBase    = "INVALID_BASE"
)

var aliases = map[string]Kind{
	"lineup": CmdLineup, "l": CmdLineup, "라인업": CmdLineup,
	"add": CmdAdd,
	"rm": CmdRemove, "remove": CmdRemove, "del": CmdRemove,
	"set": CmdSet,
	"team": CmdTeam, "팀": CmdTeam,
	"start": CmdStart, "시작": CmdStart,
	"ab": CmdAtBat,
	"score": CmdScore, "점수": CmdScore,
	"runners": CmdRunners, "주자": CmdRunners,
	"reset": CmdReset, "리셋": CmdReset,
	"history": CmdHistory, "h": CmdHistory, "기록": CmdHistory,
	"help": CmdHelp, "?": CmdHelp, "도움말": CmdHelp,
	"quit": CmdQuit, "exit": CmdQuit, "q": CmdQuit, "종료": CmdQuit,
}

// ParseCommand parses one control-panel line. A line that is just an
// outcome shortcut ("HR", "스", "1") is an at-bat.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyInput
	}
	head := strings.ToLower(fields[0])
	args := fields[1:]

	kind, ok := aliases[head]
	if !ok {
		if o, ok := scoreproto.ParseOutcome(fields[0]); ok && len(args) == 0 {
			return Command{Kind: CmdAtBat, Outcome: o}, nil
		}
		return Command{}, ErrUnknownCommand
	}

	cmd := Command{Kind: kind}
	switch kind {
	case CmdAdd:
		if len(args) != 1 {
			return cmd, &UsageError{Usage: "add <away|home>"}
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return cmd, err
		}
		cmd.Team = team
	case CmdRemove:
		if len(args) != 2 {
			return cmd, &UsageError{Usage: "rm <away|home> <번호>"}
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return cmd, err
		}
		idx, err := parseSlot(args[1], "rm <away|home> <번호>")
		if err != nil {
			return cmd, err
		}
		cmd.Team, cmd.Index = team, idx
	case CmdSet:
		if len(args) < 2 {
			return cmd, &UsageError{Usage: "set <away|home> <번호> <이름>"}
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return cmd, err
		}
		idx, err := parseSlot(args[1], "set <away|home> <번호> <이름>")
		if err != nil {
			return cmd, err
		}
		cmd.Team, cmd.Index, cmd.Name = team, idx, strings.Join(args[2:], " ")
	case CmdTeam:
		if len(args) < 2 {
			return cmd, &UsageError{Usage: "team <away|home> <이름>"}
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return cmd, err
		}
		cmd.Team, cmd.Name = team, strings.Join(args[1:], " ")
	case CmdAtBat:
		if len(args) != 1 {
			return cmd, &UsageError{Usage: "ab <결과>"}
		}
		o, ok := scoreproto.ParseOutcome(args[0])
		if !ok {
			return cmd, &InputError{Code: CodeInvalidOutcome, Input: args[0]}
		}
		cmd.Outcome = o
	case CmdRunners:
		cmd.Runners = make([]scoreproto.Base, 0, len(args))
		for _, a := range args {
			b, ok := ParseBase(a)
			if !ok {
				return cmd, &InputError{Code: CodeInvalidBase, Input: a}
			}
			cmd.Runners = append(cmd.Runners, b)
		}
	}
	return cmd, nil
}

func parseTeam(s string) (scoreproto.Team, error) {
	team, ok := scoreproto.ParseTeam(s)
	if !ok {
		return "", ErrUnknownTeam
	}
	return team, nil
}

func parseSlot(s, usage string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &UsageError{Usage: usage}
	}
	return n - 1, nil
}

// ParseBase accepts "1", "1B" or "1루" style labels.
func ParseBase(s string) (scoreproto.Base, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "루")
	v = strings.TrimSuffix(v, "B")
	switch v {
	case "1":
		return scoreproto.BaseFirst, true
	case "2":
		return scoreproto.BaseSecond, true
	case "3":
		return scoreproto.BaseThird, true
	}
	return "", false
}
