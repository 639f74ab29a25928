package lineup

import (
	"fmt"
	"regexp"
	"strings"
)

var numberPrefix = regexp.MustCompile(`^\d+\.\s*`)

// StripNumber removes one leading "<n>. " batting-order prefix.
func StripNumber(name string) string {
	return strings.TrimSpace(numberPrefix.ReplaceAllString(strings.TrimSpace(name), ""))
}

// Label renders a 0-based slot as "<slot+1>. <name>".
func Label(slot int, name string) string {
	return fmt.Sprintf("%d. %s", slot+1, StripNumber(name))
}

// Filter drops entries that are blank after trimming. Order is kept.
func Filter(players []string) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Normalize filters blanks and renumbers contiguously from 1. Applying it to
// its own output yields the same slice.
func Normalize(players []string) []string {
	filtered := Filter(players)
	out := make([]string, len(filtered))
	for i, p := range filtered {
		out[i] = Label(i, p)
	}
	return out
}
