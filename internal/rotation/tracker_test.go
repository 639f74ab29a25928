package rotation

import (
	"errors"
	"testing"

	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

func TestOffenseFromInning(t *testing.T) {
	if OffenseFromInning("1회 초") != scoreproto.TeamAway {
		t.Fatalf("top half should be away")
	}
	if OffenseFromInning("9회 말") != scoreproto.TeamHome {
		t.Fatalf("bottom half should be home")
	}
	if OffenseFromInning("") != scoreproto.TeamHome {
		t.Fatalf("unlabelled half falls back to home")
	}

	home := scoreproto.TeamHome
	st := scoreproto.State{Inning: "2회 초", OffenseTeam: &home}
	if Offense(st) != scoreproto.TeamHome {
		t.Fatalf("offense_team should win over the label")
	}
	bogus := scoreproto.Team("NOBODY")
	st.OffenseTeam = &bogus
	if Offense(st) != scoreproto.TeamAway {
		t.Fatalf("invalid offense_team should fall back to the label")
	}
}

func TestAdvancePolicy(t *testing.T) {
	for _, o := range scoreproto.Outcomes {
		tr := NewTracker()
		moved := tr.Advance(scoreproto.TeamAway, o)
		want := 0
		if o.EndsPlateAppearance() {
			want = 1
		}
		if tr.Cursor(scoreproto.TeamAway) != want || moved != (want == 1) {
			t.Fatalf("%s: cursor=%d moved=%v want %d", o, tr.Cursor(scoreproto.TeamAway), moved, want)
		}
		if tr.Cursor(scoreproto.TeamHome) != 0 {
			t.Fatalf("%s moved the other team's cursor", o)
		}
	}
}

func TestCursorWrapsModuloLineup(t *testing.T) {
	active := []string{"1. Kim", "2. Lee", "3. Park"}
	tr := NewTracker()
	for n := 0; n < 10; n++ {
		b, err := tr.Active(scoreproto.TeamHome, active)
		if err != nil {
			t.Fatalf("Active: %v", err)
		}
		if b.Index != n%len(active) {
			t.Fatalf("after %d advances index=%d want %d", n, b.Index, n%len(active))
		}
		tr.Advance(scoreproto.TeamHome, scoreproto.OutcomeOut)
	}
}

func TestOutAdvancesToSecondBatter(t *testing.T) {
	tr := NewTracker()
	active := []string{"Kim", "Lee"}
	tr.Advance(scoreproto.TeamAway, scoreproto.OutcomeOut)
	if tr.Cursor(scoreproto.TeamAway) != 1 {
		t.Fatalf("cursor = %d", tr.Cursor(scoreproto.TeamAway))
	}
	b, err := tr.Active(scoreproto.TeamAway, active)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if b.Index != 1 || b.Label != "2. Lee" || b.Name != "Lee" {
		t.Fatalf("unexpected batter: %+v", b)
	}
}

func TestLabelStripsNumberPrefix(t *testing.T) {
	b, err := At(scoreproto.TeamAway, 0, []string{"4. Choi"})
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if b.Label != "1. Choi" {
		t.Fatalf("label = %q", b.Label)
	}
}

func TestEmptyLineupRefused(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Active(scoreproto.TeamHome, nil)
	if !errors.Is(err, lineup.ErrEmptyLineup) {
		t.Fatalf("expected EMPTY_LINEUP, got %v", err)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.Advance(scoreproto.TeamAway, scoreproto.OutcomeHomeRun)
	tr.Advance(scoreproto.TeamHome, scoreproto.OutcomeSacBunt)
	tr.Advance(scoreproto.TeamHome, scoreproto.OutcomeCaughtStealing)
	tr.Reset()
	if tr.Cursor(scoreproto.TeamAway) != 0 || tr.Cursor(scoreproto.TeamHome) != 0 {
		t.Fatalf("cursors not reset")
	}
}
