package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/baseball-scorekeeper/internal/history"
	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/internal/livews"
	"github.com/park285/baseball-scorekeeper/internal/msgcat"
	"github.com/park285/baseball-scorekeeper/internal/session"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

const (
	lampOn  = "●"
	lampOff = "○"
)

// Formatter renders session snapshots as terminal text.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Formatter{cat: cat}
}

func (f *Formatter) r(key string, data any, fallback string) string {
	return f.cat.RenderOr(key, data, fallback)
}

func lamp(on bool) string {
	if on {
		return lampOn
	}
	return lampOff
}

// Board is the scoreboard block: inning, count, score, bases, batter.
func (f *Formatter) Board(s session.Snapshot) string {
	v := s.View
	rule := f.r("board.rule", nil, strings.Repeat("=", 40))
	batter := s.Batter
	if strings.TrimSpace(batter) == "" {
		batter = f.r("board.no_batter", nil, "-")
	}

	var sb strings.Builder
	sb.WriteString(rule + "\n")
	sb.WriteString(f.r("board.header", map[string]any{
		"Inning": v.Inning, "Outs": v.Outs, "Balls": v.Balls, "Strikes": v.Strikes,
	}, fmt.Sprintf("%s  outs %d  B%d-S%d", v.Inning, v.Outs, v.Balls, v.Strikes)) + "\n")
	sb.WriteString(f.r("board.score", map[string]any{
		"AwayName": s.AwayName, "Away": v.Away, "HomeName": s.HomeName, "Home": v.Home,
	}, fmt.Sprintf("%s %d - %s %d", s.AwayName, v.Away, s.HomeName, v.Home)) + "\n")
	sb.WriteString(f.r("board.bases", map[string]any{
		"First":  lamp(v.HasRunner(scoreproto.BaseFirst)),
		"Second": lamp(v.HasRunner(scoreproto.BaseSecond)),
		"Third":  lamp(v.HasRunner(scoreproto.BaseThird)),
	}, "") + "\n")
	sb.WriteString(f.r("board.batter", map[string]any{"Batter": batter}, batter) + "\n")
	if s.GameOver {
		sb.WriteString(f.r("board.game_over", nil, "GAME OVER") + "\n")
	}
	sb.WriteString(f.r("board.status", map[string]any{"Status": f.Status(s.Connection)}, string(s.Connection)) + "\n")
	if s.Pending > 0 {
		sb.WriteString(f.r("board.pending", map[string]any{"Count": s.Pending}, "") + "\n")
	}
	sb.WriteString(rule)
	return sb.String()
}

func (f *Formatter) Status(st livews.State) string {
	return f.r("status."+strings.ToLower(string(st)), nil, string(st))
}

// History lists entries most recent first, at most limit lines (0 = all).
func (f *Formatter) History(entries []history.Entry, limit int) string {
	if len(entries) == 0 {
		return f.r("history.empty", nil, "(empty)")
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, f.r("history.line", map[string]any{"Text": e.Text, "Score": e.Score}, e.Text+"  ("+e.Score+")"))
	}
	return strings.Join(lines, "\n")
}

// Lineup shows both rosters with 1-based slot numbers as the operator edits
// them.
func (f *Formatter) Lineup(s session.Snapshot) string {
	blocks := make([]string, 0, len(scoreproto.Teams))
	for _, team := range scoreproto.Teams {
		var sb strings.Builder
		sb.WriteString(f.r("lineup.title", map[string]any{"Team": s.TeamName(team)}, s.TeamName(team)))
		for i, name := range s.Lineup(team) {
			if strings.TrimSpace(name) == "" {
				name = f.r("lineup.blank", nil, "")
			}
			sb.WriteString("\n")
			sb.WriteString(f.r("lineup.slot", map[string]any{"Index": i + 1, "Name": name}, fmt.Sprintf("  [%d] %s", i+1, name)))
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.r("help", nil, "help"), "\n")
}

// Alert turns an operator-facing error into catalog text. action is the
// command that failed; an empty lineup during an at-bat reads differently
// from one at game start.
func (f *Formatter) Alert(action Kind, err error) string {
	var (
		ve    *lineup.ValidationError
		ie    *InputError
		usage *UsageError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCommand):
		return f.r("alert.unknown_command", nil, err.Error())
	case errors.Is(err, ErrUnknownTeam), errors.Is(err, lineup.ErrUnknownTeam):
		return f.r("alert.unknown_team", nil, err.Error())
	case errors.As(err, &usage):
		return f.r("alert.usage", map[string]any{"Usage": usage.Usage}, err.Error())
	case errors.As(err, &ie):
		key := "alert.invalid_outcome"
		if ie.Code == CodeInvalidBase {
			key = "alert.invalid_base"
		}
		return f.r(key, map[string]any{"Input": ie.Input}, err.Error())
	case errors.Is(err, session.ErrNotConnected):
		return f.r("alert.not_connected", nil, err.Error())
	case errors.Is(err, session.ErrGameNotStarted):
		return f.r("alert.not_started", nil, err.Error())
	case errors.Is(err, session.ErrGameAlreadyStarted):
		return f.r("alert.already_started", nil, err.Error())
	case errors.Is(err, session.ErrGameOver):
		return f.r("alert.game_over", nil, err.Error())
	case errors.Is(err, lineup.ErrLineupFrozen):
		return f.r("alert.lineup_frozen", nil, err.Error())
	case errors.As(err, &ve) && ve.Code == lineup.CodeEmptyLineup:
		if action == CmdAtBat {
			return f.r("alert.empty_rotation", nil, err.Error())
		}
		return f.r("alert.empty_lineup", nil, err.Error())
	}
	return f.r("alert.failed", map[string]any{"Message": err.Error()}, err.Error())
}
