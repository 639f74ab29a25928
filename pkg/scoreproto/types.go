package scoreproto

import "strings"

// Team identifies a side. The values match the server's winner/half tokens.
type Team string

const (
	TeamAway Team = "AWAY"
	TeamHome Team = "HOME"
)

// Teams is the batting order of a full inning.
var Teams = []Team{TeamAway, TeamHome}

func (t Team) Valid() bool { return t == TeamAway || t == TeamHome }

// ParseTeam maps operator input ("away", "home", "a", "h", ...) onto a Team.
func ParseTeam(s string) (Team, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "away", "a", "visitor", "원정":
		return TeamAway, true
	case "home", "h", "홈":
		return TeamHome, true
	default:
		return "", false
	}
}

// Base is an occupied-base label.
type Base string

const (
	BaseFirst  Base = "1B"
	BaseSecond Base = "2B"
	BaseThird  Base = "3B"
)

// Bases lists the bases in running order.
var Bases = []Base{BaseFirst, BaseSecond, BaseThird}

func (b Base) Valid() bool {
	return b == BaseFirst || b == BaseSecond || b == BaseThird
}

// 이닝 표기: "<n>회 <초|말>"
const (
	HalfTop    = "초"
	HalfBottom = "말"
)

// State is the authoritative snapshot pushed by the server in a STATE frame.
// OffenseTeam and BatterIndex are optional; servers that send them let the
// client stop inferring the batting side from the inning label.
type State struct {
	Inning        string  `json:"inning"`
	Outs          int     `json:"outs"`
	Balls         int     `json:"balls"`
	Strikes       int     `json:"strikes"`
	Home          int     `json:"home"`
	Away          int     `json:"away"`
	Runners       []Base  `json:"runners"`
	CurrentBatter *string `json:"current_batter"`
	GameOver      bool    `json:"game_over"`
	OffenseTeam   *Team   `json:"offense_team,omitempty"`
	BatterIndex   *int    `json:"batter_index,omitempty"`
}

// InitialState is what the client shows before the first STATE arrives.
func InitialState() State {
	return State{Inning: "1회 " + HalfTop, Runners: []Base{}}
}

// Clone returns a deep copy so holders never share slices or pointers.
func (s State) Clone() State {
	out := s
	out.Runners = append([]Base{}, s.Runners...)
	if s.CurrentBatter != nil {
		v := *s.CurrentBatter
		out.CurrentBatter = &v
	}
	if s.OffenseTeam != nil {
		v := *s.OffenseTeam
		out.OffenseTeam = &v
	}
	if s.BatterIndex != nil {
		v := *s.BatterIndex
		out.BatterIndex = &v
	}
	return out
}

// HasRunner reports whether base b is occupied.
func (s State) HasRunner(b Base) bool {
	for _, r := range s.Runners {
		if r == b {
			return true
		}
	}
	return false
}

// IsTopHalf reports whether the visiting team bats in the labelled half.
func IsTopHalf(inning string) bool {
	return strings.Contains(inning, HalfTop)
}
