package rotation

import (
	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

// Batter is the slot currently at the plate.
type Batter struct {
	Team  scoreproto.Team
	Index int
	Name  string
	Label string
}

// Tracker predicts the batter locally between server updates. Each cursor
// counts completed plate appearances for its team in the current game.
type Tracker struct {
	cursors map[scoreproto.Team]int
}

func NewTracker() *Tracker {
	return &Tracker{cursors: map[scoreproto.Team]int{
		scoreproto.TeamAway: 0,
		scoreproto.TeamHome: 0,
	}}
}

// OffenseFromInning infers the batting side from an inning label: the
// visiting-half marker means away bats, anything else means home bats.
func OffenseFromInning(inning string) scoreproto.Team {
	if scoreproto.IsTopHalf(inning) {
		return scoreproto.TeamAway
	}
	return scoreproto.TeamHome
}

// Offense prefers the server's offense_team and falls back to the label.
func Offense(st scoreproto.State) scoreproto.Team {
	if st.OffenseTeam != nil && st.OffenseTeam.Valid() {
		return *st.OffenseTeam
	}
	return OffenseFromInning(st.Inning)
}

func (t *Tracker) Cursor(team scoreproto.Team) int { return t.cursors[team] }

// Active returns the predicted batter for team. active must already be
// filtered of blank entries.
func (t *Tracker) Active(team scoreproto.Team, active []string) (Batter, error) {
	return At(team, t.cursors[team], active)
}

// At resolves an arbitrary cursor against a filtered lineup.
func At(team scoreproto.Team, cursor int, active []string) (Batter, error) {
	if len(active) == 0 {
		return Batter{}, lineup.EmptyLineup(team)
	}
	idx := cursor % len(active)
	if idx < 0 {
		idx += len(active)
	}
	name := lineup.StripNumber(active[idx])
	return Batter{Team: team, Index: idx, Name: name, Label: lineup.Label(idx, name)}, nil
}

// Advance moves team's cursor by one when outcome ends the plate appearance.
// It reports whether the cursor moved.
func (t *Tracker) Advance(team scoreproto.Team, outcome scoreproto.Outcome) bool {
	if !team.Valid() || !outcome.EndsPlateAppearance() {
		return false
	}
	t.cursors[team]++
	return true
}

// Reset returns both cursors to zero.
func (t *Tracker) Reset() {
	for _, team := range scoreproto.Teams {
		t.cursors[team] = 0
	}
}
