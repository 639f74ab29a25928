package scoreproto

// Command types sent to the server.
const (
	TypeSetLineup  = "SET_LINEUP"
	TypeAtBat      = "AB"
	TypeReset      = "RESET"
	TypeScore      = "SCORE"
	TypeSetRunners = "SET_RUNNERS"
)

// Inbound message types.
const (
	TypeState = "STATE"
	TypeAck   = "ACK"
	TypeEnd   = "END"
	TypeError = "ERROR"
)

// ACK msg values for non-at-bat acknowledgements.
const (
	AckLineupSet = "LINEUP_SET"
	AckReset     = "RESET"
)

// SetLineup starts a game with two numbered lineups.
type SetLineup struct {
	Type       string   `json:"type"`
	ID         string   `json:"id,omitempty"`
	AwayLineup []string `json:"away_lineup"`
	HomeLineup []string `json:"home_lineup"`
}

// AtBat reports one operator button press.
type AtBat struct {
	Type   string  `json:"type"`
	ID     string  `json:"id,omitempty"`
	Batter string  `json:"batter"`
	Result Outcome `json:"result"`
}

// Reset abandons the current game.
type Reset struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Score asks the server to push a fresh STATE.
type Score struct {
	Type string `json:"type"`
}

// SetRunners overrides the occupied bases.
type SetRunners struct {
	Type    string `json:"type"`
	Runners []Base `json:"runners"`
}

// NewSetLineup builds a SET_LINEUP frame. id is the idempotency key a server
// may use to drop a resent command.
func NewSetLineup(id string, away, home []string) SetLineup {
	return SetLineup{Type: TypeSetLineup, ID: id, AwayLineup: away, HomeLineup: home}
}

func NewAtBat(id, batter string, result Outcome) AtBat {
	return AtBat{Type: TypeAtBat, ID: id, Batter: batter, Result: result}
}

func NewReset(id string) Reset { return Reset{Type: TypeReset, ID: id} }

func NewScore() Score { return Score{Type: TypeScore} }

func NewSetRunners(runners []Base) SetRunners {
	if runners == nil {
		runners = []Base{}
	}
	return SetRunners{Type: TypeSetRunners, Runners: runners}
}
