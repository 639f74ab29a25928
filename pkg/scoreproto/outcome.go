package scoreproto

import "strings"

// Outcome is the result code carried by an AB command and echoed in at-bat ACKs.
type Outcome string

const (
	OutcomeSingle         Outcome = "1B"
	OutcomeDouble         Outcome = "2B"
	OutcomeTriple         Outcome = "3B"
	OutcomeHomeRun        Outcome = "HR"
	OutcomeOut            Outcome = "OUT"
	OutcomeStrike         Outcome = "STRIKE"
	OutcomeBall           Outcome = "BALL"
	OutcomeFoul           Outcome = "FOUL"
	OutcomeSacFly         Outcome = "SAC_FLY"
	OutcomeSacBunt        Outcome = "SAC_BUNT"
	OutcomeError          Outcome = "ERROR"
	OutcomeSteal          Outcome = "STEAL"
	OutcomeCaughtStealing Outcome = "CAUGHT_STEALING"
	OutcomeWildPitch      Outcome = "WILD_PITCH"
	OutcomeBalk           Outcome = "BALK"
)

// Outcomes lists every outcome in control-panel order.
var Outcomes = []Outcome{
	OutcomeSingle, OutcomeDouble, OutcomeTriple, OutcomeHomeRun,
	OutcomeStrike, OutcomeBall, OutcomeFoul, OutcomeOut,
	OutcomeSacFly, OutcomeSacBunt, OutcomeError,
	OutcomeSteal, OutcomeCaughtStealing, OutcomeWildPitch, OutcomeBalk,
}

// Valid reports whether o is one of the fifteen protocol outcomes.
func (o Outcome) Valid() bool {
	for _, v := range Outcomes {
		if v == o {
			return true
		}
	}
	return false
}

// EndsPlateAppearance reports whether the batter's turn is over after o.
// Count-only and runner-only outcomes keep the same batter at the plate.
func (o Outcome) EndsPlateAppearance() bool {
	switch o {
	case OutcomeSingle, OutcomeDouble, OutcomeTriple, OutcomeHomeRun,
		OutcomeOut, OutcomeSacFly, OutcomeSacBunt, OutcomeCaughtStealing:
		return true
	default:
		return false
	}
}

// FallbackSymbol marks history entries whose result has no dedicated symbol.
const FallbackSymbol = "📝"

var symbols = map[Outcome]string{
	OutcomeHomeRun: "💥",
	OutcomeTriple:  "⚡",
	OutcomeDouble:  "💨",
	OutcomeSingle:  "✅",
	OutcomeOut:     "❌",
	OutcomeStrike:  "⚾",
	OutcomeBall:    "🟢",
	OutcomeFoul:    "🔶",
}

// Symbol returns the history marker for a raw result code. Unknown codes,
// including ones this client has never heard of, get FallbackSymbol.
func Symbol(result string) string {
	if s, ok := symbols[Outcome(strings.ToUpper(strings.TrimSpace(result)))]; ok {
		return s
	}
	return FallbackSymbol
}

// 입력 단축키 → 표준 결과 코드
var shortcuts = map[string]Outcome{
	"1":  OutcomeSingle,
	"2":  OutcomeDouble,
	"3":  OutcomeTriple,
	"HR": OutcomeHomeRun,
	"S":  OutcomeStrike,
	"B":  OutcomeBall,
	"F":  OutcomeFoul,
	"O":  OutcomeOut,
	"SF": OutcomeSacFly,
	"SH": OutcomeSacBunt,
	"E":  OutcomeError,
	"SB": OutcomeSteal,
	"CS": OutcomeCaughtStealing,
	"WP": OutcomeWildPitch,
	"BK": OutcomeBalk,

	"홈런":    OutcomeHomeRun,
	"스트라이크": OutcomeStrike,
	"스":     OutcomeStrike,
	"볼":     OutcomeBall,
	"ㅂ":     OutcomeBall,
	"파울":    OutcomeFoul,
	"ㅍ":     OutcomeFoul,
	"아웃":    OutcomeOut,
	"희비":    OutcomeSacFly,
	"희번":    OutcomeSacBunt,
	"에러":    OutcomeError,
	"도루":    OutcomeSteal,
	"도루성공":  OutcomeSteal,
	"도루실패":  OutcomeCaughtStealing,
	"도루아웃":  OutcomeCaughtStealing,
	"폭투":    OutcomeWildPitch,
	"보크":    OutcomeBalk,
}

// ParseOutcome accepts a canonical code or an operator shortcut.
func ParseOutcome(input string) (Outcome, bool) {
	key := strings.ToUpper(strings.TrimSpace(input))
	if key == "" {
		return "", false
	}
	if o, ok := shortcuts[key]; ok {
		return o, true
	}
	o := Outcome(key)
	return o, o.Valid()
}
