package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/park285/baseball-scorekeeper/internal/history"
	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/internal/livews"
	"github.com/park285/baseball-scorekeeper/internal/livews/livewstest"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

func newTestSession(t *testing.T, st livews.State) (*Session, *livewstest.Transport) {
	t.Helper()
	tr := livewstest.New(st)
	s := New(tr, Options{SessionID: "t1", Slots: 3, AwayName: "Tigers", HomeName: "Bears", ResendPending: true})
	return s, tr
}

func fillLineups(t *testing.T, s *Session, away, home []string) {
	t.Helper()
	for i, name := range away {
		if err := s.SetPlayer(scoreproto.TeamAway, i, name); err != nil {
			t.Fatalf("SetPlayer away %d: %v", i, err)
		}
	}
	for i, name := range home {
		if err := s.SetPlayer(scoreproto.TeamHome, i, name); err != nil {
			t.Fatalf("SetPlayer home %d: %v", i, err)
		}
	}
}

func startedSession(t *testing.T) (*Session, *livewstest.Transport) {
	t.Helper()
	s, tr := newTestSession(t, livews.StateOpen)
	fillLineups(t, s, []string{"Kim", "", "Lee"}, []string{"Park", "Choi", ""})
	if err := s.StartGame(context.Background()); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return s, tr
}

func stringsOf(v any) []string {
	arr, _ := v.([]any)
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		s, _ := x.(string)
		out = append(out, s)
	}
	return out
}

func TestStartGameRequiresConnectionFirst(t *testing.T) {
	s, tr := newTestSession(t, livews.StateClosed)
	if err := s.StartGame(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if len(tr.Frames()) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestStartGameEmptyLineupBlocked(t *testing.T) {
	s, tr := newTestSession(t, livews.StateOpen)
	fillLineups(t, s, []string{"Kim"}, nil)
	err := s.StartGame(context.Background())
	var ve *lineup.ValidationError
	if !errors.As(err, &ve) || ve.Code != lineup.CodeEmptyLineup || ve.Team != scoreproto.TeamHome {
		t.Fatalf("err = %v, want EMPTY_LINEUP for HOME", err)
	}
	if len(tr.Frames()) != 0 {
		t.Fatalf("nothing should be sent")
	}
	if s.Snapshot().Phase != PhaseSetup {
		t.Fatalf("phase changed on failed start")
	}
}

func TestStartGameSendsNumberedLineupAndSeedsHistory(t *testing.T) {
	s, tr := startedSession(t)
	f := tr.Last()
	if f["type"] != scoreproto.TypeSetLineup {
		t.Fatalf("sent %v", f)
	}
	if got := stringsOf(f["away_lineup"]); !reflect.DeepEqual(got, []string{"1. Kim", "2. Lee"}) {
		t.Fatalf("away_lineup = %v", got)
	}
	if got := stringsOf(f["home_lineup"]); !reflect.DeepEqual(got, []string{"1. Park", "2. Choi"}) {
		t.Fatalf("home_lineup = %v", got)
	}
	if id, _ := f["id"].(string); id == "" {
		t.Fatalf("missing idempotency key")
	}

	snap := s.Snapshot()
	if snap.Phase != PhaseInProgress {
		t.Fatalf("phase = %s", snap.Phase)
	}
	if len(snap.History) != 1 || snap.History[0].Score != "0 - 0" {
		t.Fatalf("history = %+v", snap.History)
	}
	if snap.Pending != 1 {
		t.Fatalf("pending = %d", snap.Pending)
	}
	if err := s.AddPlayer(scoreproto.TeamAway); !errors.Is(err, lineup.ErrLineupFrozen) {
		t.Fatalf("edit during game = %v", err)
	}
	if err := s.StartGame(context.Background()); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Fatalf("second start = %v", err)
	}

	tr.Deliver(`{"type":"ACK","msg":"LINEUP_SET","away_lineup":["1. Kim","2. Lee"],"home_lineup":["1. Park","2. Choi"]}`)
	snap = s.Snapshot()
	if snap.Pending != 0 {
		t.Fatalf("pending after ack = %d", snap.Pending)
	}
	if snap.Phase != PhaseInProgress {
		t.Fatalf("lineup ack changed phase")
	}
}

func TestRotationAdvancesOnlyOnPlateAppearanceEnd(t *testing.T) {
	s, tr := startedSession(t)
	ctx := context.Background()

	if err := s.SendResult(ctx, scoreproto.OutcomeBall); err != nil {
		t.Fatalf("BALL: %v", err)
	}
	if tr.Last()["batter"] != "1. Kim" {
		t.Fatalf("batter = %v", tr.Last()["batter"])
	}
	if s.Snapshot().AwayCursor != 0 {
		t.Fatalf("BALL advanced the cursor")
	}

	if err := s.SendResult(ctx, scoreproto.OutcomeOut); err != nil {
		t.Fatalf("OUT: %v", err)
	}
	if tr.Last()["batter"] != "1. Kim" || tr.Last()["result"] != "OUT" {
		t.Fatalf("sent %v", tr.Last())
	}
	if s.Snapshot().AwayCursor != 1 {
		t.Fatalf("OUT should advance")
	}

	if err := s.SendResult(ctx, scoreproto.OutcomeHomeRun); err != nil {
		t.Fatalf("HR: %v", err)
	}
	if tr.Last()["batter"] != "2. Lee" {
		t.Fatalf("second batter expected, got %v", tr.Last()["batter"])
	}

	if err := s.SendResult(ctx, scoreproto.OutcomeSingle); err != nil {
		t.Fatalf("1B: %v", err)
	}
	if tr.Last()["batter"] != "1. Kim" {
		t.Fatalf("rotation should wrap, got %v", tr.Last()["batter"])
	}
	if s.Snapshot().HomeCursor != 0 {
		t.Fatalf("home cursor moved while away bats")
	}
}

func TestBottomHalfRotatesHomeLineup(t *testing.T) {
	s, tr := startedSession(t)
	tr.Deliver(`{"type":"STATE","inning":"1회 말","outs":0,"balls":0,"strikes":0,"home":0,"away":0,"runners":[],"current_batter":null,"game_over":false}`)
	if err := s.SendResult(context.Background(), scoreproto.OutcomeSacFly); err != nil {
		t.Fatalf("SAC_FLY: %v", err)
	}
	if tr.Last()["batter"] != "1. Park" {
		t.Fatalf("batter = %v", tr.Last()["batter"])
	}
	snap := s.Snapshot()
	if snap.HomeCursor != 1 || snap.AwayCursor != 0 {
		t.Fatalf("cursors = %d/%d", snap.AwayCursor, snap.HomeCursor)
	}
	if snap.Offense != scoreproto.TeamHome {
		t.Fatalf("offense = %s", snap.Offense)
	}
}

func TestServerOffenseAndBatterIndexWin(t *testing.T) {
	s, tr := startedSession(t)
	tr.Deliver(`{"type":"STATE","inning":"1회 초","outs":0,"balls":0,"strikes":0,"home":0,"away":0,"runners":[],"current_batter":null,"game_over":false,"offense_team":"HOME","batter_index":1}`)
	if err := s.SendResult(context.Background(), scoreproto.OutcomeStrike); err != nil {
		t.Fatalf("STRIKE: %v", err)
	}
	if tr.Last()["batter"] != "2. Choi" {
		t.Fatalf("batter = %v", tr.Last()["batter"])
	}
}

func TestDisplayBatterPrefersServer(t *testing.T) {
	s, tr := startedSession(t)
	if got := s.Snapshot().Batter; got != "1. Kim" {
		t.Fatalf("predicted batter = %q", got)
	}
	tr.Deliver(`{"type":"STATE","inning":"1회 초","outs":0,"balls":0,"strikes":0,"home":0,"away":0,"runners":[],"current_batter":"7. Server","game_over":false}`)
	if got := s.Snapshot().Batter; got != "7. Server" {
		t.Fatalf("display batter = %q", got)
	}
}

func TestStateReplacesWholesale(t *testing.T) {
	s, tr := newTestSession(t, livews.StateOpen)
	if s.Snapshot().Synced {
		t.Fatalf("synced before any STATE")
	}
	tr.Deliver(`{"type":"STATE","inning":"3회 말","outs":2,"balls":3,"strikes":1,"home":4,"away":2,"runners":["1B","3B"],"current_batter":"2. Lee","game_over":false,"batter_index":1}`)
	tr.Deliver(`{"type":"STATE","inning":"4회 초","outs":0,"balls":0,"strikes":0,"home":4,"away":2,"runners":[],"current_batter":null,"game_over":false}`)

	want := scoreproto.State{Inning: "4회 초", Home: 4, Away: 2, Runners: []scoreproto.Base{}}
	got := s.Snapshot()
	if !reflect.DeepEqual(got.View, want) {
		t.Fatalf("view = %+v, want %+v", got.View, want)
	}
	if !got.Synced {
		t.Fatalf("Synced not set after STATE")
	}
}

func TestAckHistoryMostRecentFirst(t *testing.T) {
	s, tr := startedSession(t)
	tr.Deliver(`{"type":"ACK","batter":"1. Kim","result":"HR","away":1,"home":0,"inning":1,"half":"초"}`)
	tr.Deliver(`{"type":"ACK","batter":"2. Lee","result":"WILD_PITCH","away":1,"home":0,"inning":1,"half":"초"}`)

	h := s.Snapshot().History
	want := []history.Entry{
		{Text: "📝 2. Lee: WILD_PITCH", Score: "1 - 0"},
		{Text: "💥 1. Kim: HR", Score: "1 - 0"},
	}
	if len(h) != 3 || !reflect.DeepEqual(h[:2], want) {
		t.Fatalf("history = %+v", h)
	}
}

func TestResetAckClearsLocalState(t *testing.T) {
	s, tr := startedSession(t)
	ctx := context.Background()
	_ = s.SendResult(ctx, scoreproto.OutcomeDouble)
	tr.Deliver(`{"type":"ACK","batter":"1. Kim","result":"2B","away":0,"home":0}`)

	if err := s.ResetGame(ctx); err != nil {
		t.Fatalf("ResetGame: %v", err)
	}
	if tr.Last()["type"] != scoreproto.TypeReset {
		t.Fatalf("sent %v", tr.Last())
	}
	if s.Snapshot().Phase != PhaseInProgress {
		t.Fatalf("reset must wait for the ack")
	}

	tr.Deliver(`{"type":"ACK","msg":"RESET"}`)
	snap := s.Snapshot()
	if snap.Phase != PhaseSetup {
		t.Fatalf("phase = %s", snap.Phase)
	}
	if len(snap.History) != 0 {
		t.Fatalf("history not cleared: %+v", snap.History)
	}
	if snap.AwayCursor != 0 || snap.HomeCursor != 0 {
		t.Fatalf("cursors not zeroed")
	}
	if snap.Pending != 0 {
		t.Fatalf("pending = %d", snap.Pending)
	}
	if err := s.AddPlayer(scoreproto.TeamAway); err != nil {
		t.Fatalf("lineup should be editable after reset: %v", err)
	}
	if err := s.SendResult(ctx, scoreproto.OutcomeBall); !errors.Is(err, ErrGameNotStarted) {
		t.Fatalf("AB after reset = %v", err)
	}
}

func TestEndGatesFurtherAtBats(t *testing.T) {
	s, tr := startedSession(t)
	_ = s.SendResult(context.Background(), scoreproto.OutcomeHomeRun)
	tr.Deliver(`{"type":"END","winner":"HOME","away":3,"home":5}`)

	snap := s.Snapshot()
	if !snap.GameOver || snap.Winner != scoreproto.TeamHome {
		t.Fatalf("game over not recorded: %+v", snap)
	}
	if snap.Phase != PhaseInProgress {
		t.Fatalf("phase should stay IN_PROGRESS for display")
	}
	if snap.Pending != 1 {
		t.Fatalf("END should ack the AB: pending = %d", snap.Pending)
	}
	top := snap.History[0]
	if !strings.Contains(top.Text, "Bears") || top.Score != "최종 3 - 5" {
		t.Fatalf("end entry = %+v", top)
	}

	sent := len(tr.Frames())
	if err := s.SendResult(context.Background(), scoreproto.OutcomeBall); !errors.Is(err, ErrGameOver) {
		t.Fatalf("err = %v, want ErrGameOver", err)
	}
	if len(tr.Frames()) != sent {
		t.Fatalf("AB sent after END")
	}
}

func TestEndEntryUsesDefaultDisplayName(t *testing.T) {
	tr := livewstest.New(livews.StateOpen)
	s := New(tr, Options{Slots: 1})
	fillLineups(t, s, []string{"Kim"}, []string{"Park"})
	if err := s.StartGame(context.Background()); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	tr.Deliver(`{"type":"END","winner":"HOME","away":1,"home":2}`)

	top := s.Snapshot().History[0]
	if top.Text != "🏆 게임 종료! 승자: "+lineup.DefaultHomeName {
		t.Fatalf("end entry = %q", top.Text)
	}
}

func TestMalformedFramesLeaveStateUntouched(t *testing.T) {
	s, tr := startedSession(t)
	before := s.Snapshot()
	var notified int
	s.Subscribe(func(Snapshot) { notified++ })

	for _, frame := range []string{"", "not json", `{}`, `{"type":""}`, `{"type":"STATE","outs":"two"}`, `{"type":"MYSTERY"}`} {
		tr.Deliver(frame)
	}
	after := s.Snapshot()
	if notified != 0 {
		t.Fatalf("subscribers notified %d times", notified)
	}
	if after.Synced {
		t.Fatalf("a rejected STATE marked the view synced")
	}
	if after.Seq != before.Seq || !reflect.DeepEqual(after.View, before.View) || !reflect.DeepEqual(after.History, before.History) {
		t.Fatalf("state changed by bad frames")
	}
}

func TestDisconnectKeepsViewAndHistory(t *testing.T) {
	s, tr := startedSession(t)
	tr.Deliver(`{"type":"STATE","inning":"2회 초","outs":1,"balls":0,"strikes":0,"home":0,"away":1,"runners":["2B"],"current_batter":null,"game_over":false}`)
	tr.Deliver(`{"type":"ACK","batter":"1. Kim","result":"2B","away":1,"home":0}`)

	var last Snapshot
	s.Subscribe(func(sn Snapshot) { last = sn })
	tr.Fail(errors.New("read: broken pipe"))
	tr.SetState(livews.StateClosed)

	if last.Connection != livews.StateClosed {
		t.Fatalf("connection = %s", last.Connection)
	}
	if !strings.Contains(last.Notice, "연결이 끊어졌습니다") || !strings.Contains(last.Notice, "broken pipe") {
		t.Fatalf("notice = %q", last.Notice)
	}
	if last.View.Inning != "2회 초" || len(last.History) != 2 {
		t.Fatalf("held state lost: %+v", last)
	}
	if err := s.SendResult(context.Background(), scoreproto.OutcomeBall); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v", err)
	}
}

func TestPendingCommandsResentAfterReconnect(t *testing.T) {
	s, tr := startedSession(t)
	_ = s.SendResult(context.Background(), scoreproto.OutcomeSingle)
	first := tr.Frames()
	if len(first) != 2 {
		t.Fatalf("frames = %d", len(first))
	}

	tr.SetState(livews.StateReconnecting)
	var last Snapshot
	s.Subscribe(func(sn Snapshot) { last = sn })
	tr.SetState(livews.StateOpen)

	all := tr.Frames()
	if len(all) != 4 {
		t.Fatalf("frames after reconnect = %d", len(all))
	}
	for i := 0; i < 2; i++ {
		if all[2+i]["id"] != first[i]["id"] || all[2+i]["type"] != first[i]["type"] {
			t.Fatalf("resend %d = %v, want %v", i, all[2+i], first[i])
		}
	}
	if !strings.Contains(last.Notice, "2") {
		t.Fatalf("notice = %q", last.Notice)
	}
}

func TestServerErrorPopsOldestPending(t *testing.T) {
	s, tr := startedSession(t)
	_ = s.SendResult(context.Background(), scoreproto.OutcomeFoul)
	var last Snapshot
	s.Subscribe(func(sn Snapshot) { last = sn })
	tr.Deliver(`{"type":"ERROR","msg":"Unknown command"}`)
	if last.Pending != 1 {
		t.Fatalf("pending = %d", last.Pending)
	}
	if !strings.Contains(last.Notice, "Unknown command") {
		t.Fatalf("notice = %q", last.Notice)
	}
}

func TestInvalidOutcomeAndBase(t *testing.T) {
	s, tr := startedSession(t)
	var ve *lineup.ValidationError
	if err := s.SendResult(context.Background(), scoreproto.Outcome("TRIPLE_PLAY")); !errors.As(err, &ve) || ve.Code != lineup.CodeInvalidOutcome {
		t.Fatalf("err = %v", err)
	}
	if err := s.SetRunners(context.Background(), []scoreproto.Base{"4B"}); !errors.As(err, &ve) || ve.Code != lineup.CodeInvalidBase {
		t.Fatalf("err = %v", err)
	}
	if err := s.SetRunners(context.Background(), []scoreproto.Base{scoreproto.BaseThird, scoreproto.BaseFirst, scoreproto.BaseThird}); err != nil {
		t.Fatalf("SetRunners: %v", err)
	}
	if got := stringsOf(tr.Last()["runners"]); !reflect.DeepEqual(got, []string{"1B", "3B"}) {
		t.Fatalf("runners = %v", got)
	}
	if err := s.RequestScore(context.Background()); err != nil {
		t.Fatalf("RequestScore: %v", err)
	}
	if tr.Last()["type"] != scoreproto.TypeScore {
		t.Fatalf("sent %v", tr.Last())
	}
	if s.Snapshot().Pending != 1 {
		t.Fatalf("SCORE and SET_RUNNERS must not be tracked")
	}
}

func TestTeamNameChangeKeepsConnection(t *testing.T) {
	s, tr := newTestSession(t, livews.StateOpen)
	if err := s.SetTeamName(scoreproto.TeamHome, "Giants"); err != nil {
		t.Fatalf("SetTeamName: %v", err)
	}
	if tr.Connects() != 0 || len(tr.Frames()) != 0 {
		t.Fatalf("team name change touched the transport")
	}
	if s.Snapshot().HomeName != "Giants" {
		t.Fatalf("name not applied")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s, _ := newTestSession(t, livews.StateOpen)
	var a, b int
	ida := s.Subscribe(func(Snapshot) { a++ })
	s.Subscribe(func(Snapshot) { b++ })
	_ = s.AddPlayer(scoreproto.TeamAway)
	s.Unsubscribe(ida)
	_ = s.AddPlayer(scoreproto.TeamAway)
	if a != 1 || b != 2 {
		t.Fatalf("a=%d b=%d", a, b)
	}
	if got := len(s.Snapshot().AwayLineup); got != 5 {
		t.Fatalf("away slots = %d", got)
	}
}

func TestEmptyRotationRefusesAtBat(t *testing.T) {
	s, tr := startedSession(t)
	// blank the away lineup behind the frozen guard
	s.mu.Lock()
	s.registry.Unfreeze()
	s.mu.Unlock()
	_ = s.SetPlayer(scoreproto.TeamAway, 0, "")
	_ = s.SetPlayer(scoreproto.TeamAway, 2, " ")
	sent := len(tr.Frames())
	if err := s.SendResult(context.Background(), scoreproto.OutcomeOut); !errors.Is(err, lineup.ErrEmptyLineup) {
		t.Fatalf("err = %v", err)
	}
	if len(tr.Frames()) != sent {
		t.Fatalf("AB sent with empty rotation")
	}
}
