package lineup

import (
	"strings"
	"sync"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

// DefaultSlots is the number of blank slots each roster starts with.
const DefaultSlots = 9

// Display names used when none is configured.
const (
	DefaultAwayName = "Away Team"
	DefaultHomeName = "Home Team"
)

// Payload is the normalized SET_LINEUP body.
type Payload struct {
	Away []string
	Home []string
}

// Registry holds the two editable rosters and the display team names.
// Index-based edits that fall outside the roster are silent no-ops: indexes
// come from a rendered list that is kept in sync with this state.
type Registry struct {
	mu      sync.RWMutex
	rosters map[scoreproto.Team][]string
	names   map[scoreproto.Team]string
	frozen  bool
}

// NewRegistry creates rosters with slots blank entries each.
func NewRegistry(slots int, awayName, homeName string) *Registry {
	if slots < 0 {
		slots = 0
	}
	r := &Registry{
		rosters: map[scoreproto.Team][]string{
			scoreproto.TeamAway: make([]string, slots),
			scoreproto.TeamHome: make([]string, slots),
		},
		names: map[scoreproto.Team]string{
			scoreproto.TeamAway: defaultName(awayName, DefaultAwayName),
			scoreproto.TeamHome: defaultName(homeName, DefaultHomeName),
		},
	}
	return r
}

func defaultName(name, def string) string {
	if strings.TrimSpace(name) == "" {
		return def
	}
	return strings.TrimSpace(name)
}

func (r *Registry) editable(team scoreproto.Team) error {
	if !team.Valid() {
		return ErrUnknownTeam
	}
	if r.frozen {
		return ErrLineupFrozen
	}
	return nil
}

// AddPlayer appends one blank slot.
func (r *Registry) AddPlayer(team scoreproto.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.editable(team); err != nil {
		return err
	}
	r.rosters[team] = append(r.rosters[team], "")
	return nil
}

// RemovePlayer deletes the slot at index.
func (r *Registry) RemovePlayer(team scoreproto.Team, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.editable(team); err != nil {
		return err
	}
	list := r.rosters[team]
	if index < 0 || index >= len(list) {
		return nil
	}
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:index]...)
	r.rosters[team] = append(out, list[index+1:]...)
	return nil
}

// SetPlayer overwrites the slot at index.
func (r *Registry) SetPlayer(team scoreproto.Team, index int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.editable(team); err != nil {
		return err
	}
	list := r.rosters[team]
	if index < 0 || index >= len(list) {
		return nil
	}
	list[index] = name
	return nil
}

// Players returns a copy of the raw roster, blanks included.
func (r *Registry) Players(team scoreproto.Team) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.rosters[team]...)
}

// Active returns the non-blank entries of a roster in batting order.
func (r *Registry) Active(team scoreproto.Team) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Filter(r.rosters[team])
}

// SetTeamName changes a display name. Names are editable at any time and
// never affect the connection.
func (r *Registry) SetTeamName(team scoreproto.Team, name string) error {
	if !team.Valid() {
		return ErrUnknownTeam
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[team] = defaultName(name, r.names[team])
	return nil
}

func (r *Registry) TeamName(team scoreproto.Team) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[team]
}

// Freeze makes the rosters read-only until Unfreeze.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Unfreeze() {
	r.mu.Lock()
	r.frozen = false
	r.mu.Unlock()
}

// BuildStartPayload normalizes both rosters for SET_LINEUP. A roster with no
// non-blank entry yields an EMPTY_LINEUP validation error; away is checked
// first.
func (r *Registry) BuildStartPayload() (Payload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	away := Normalize(r.rosters[scoreproto.TeamAway])
	if len(away) == 0 {
		return Payload{}, EmptyLineup(scoreproto.TeamAway)
	}
	home := Normalize(r.rosters[scoreproto.TeamHome])
	if len(home) == 0 {
		return Payload{}, EmptyLineup(scoreproto.TeamHome)
	}
	return Payload{Away: away, Home: home}, nil
}
