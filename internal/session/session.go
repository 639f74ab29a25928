package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/baseball-scorekeeper/internal/history"
	"github.com/park285/baseball-scorekeeper/internal/journal"
	"github.com/park285/baseball-scorekeeper/internal/lineup"
	"github.com/park285/baseball-scorekeeper/internal/livews"
	"github.com/park285/baseball-scorekeeper/internal/msgcat"
	"github.com/park285/baseball-scorekeeper/internal/outbox"
	"github.com/park285/baseball-scorekeeper/internal/rotation"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

type Phase string

const (
	PhaseSetup      Phase = "SETUP"
	PhaseInProgress Phase = "IN_PROGRESS"
)

// Snapshot is an immutable copy of everything a renderer needs.
type Snapshot struct {
	Seq        uint64
	SessionID  string
	Phase      Phase
	Connection livews.State
	View       scoreproto.State
	// Synced is false until the first STATE arrives; View is the placeholder
	// until then.
	Synced     bool
	GameOver   bool
	Winner     scoreproto.Team
	Offense    scoreproto.Team
	Batter     string
	AwayName   string
	HomeName   string
	AwayLineup []string
	HomeLineup []string
	AwayCursor int
	HomeCursor int
	History    []history.Entry
	Pending    int
	// Notice is the operator-facing message produced by this change, if any.
	Notice string
}

// TeamName returns the display name for team.
func (s Snapshot) TeamName(team scoreproto.Team) string {
	if team == scoreproto.TeamHome {
		return s.HomeName
	}
	return s.AwayName
}

func (s Snapshot) Lineup(team scoreproto.Team) []string {
	if team == scoreproto.TeamHome {
		return s.HomeLineup
	}
	return s.AwayLineup
}

type Subscriber func(Snapshot)

type Options struct {
	SessionID string
	Slots     int
	AwayName  string
	HomeName  string
	// Outbox keeps unacknowledged commands; nil uses an in-memory store.
	Outbox  outbox.Store
	Journal journal.Sink
	Catalog *msgcat.Catalog
	Logger  *zap.Logger
	// ResendPending replays unacknowledged commands after a reconnect.
	ResendPending bool
	StoreTimeout  time.Duration
}

// Session owns one scoring-server connection and all client-side game
// state. Operator calls and inbound frames are serialized by mu; subscribers
// are notified after it is released.
type Session struct {
	id  string
	tr  livews.Client
	log *zap.Logger
	cat *msgcat.Catalog

	box          outbox.Store
	jr           journal.Sink
	resend       bool
	storeTimeout time.Duration

	mu       sync.Mutex
	registry *lineup.Registry
	tracker  *rotation.Tracker
	recon    *Reconciler
	hist     *history.Log
	phase    Phase
	conn     livews.State
	gameOver bool
	winner   scoreproto.Team
	seq      uint64

	lastTransportErr atomic.Value

	subM    sync.RWMutex
	subs    map[int]Subscriber
	nextSub int

	cbIDs struct{ msg, state, err int }
}

func New(tr livews.Client, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := strings.TrimSpace(opts.SessionID)
	if id == "" {
		id = "default"
	}
	slots := opts.Slots
	if slots <= 0 {
		slots = lineup.DefaultSlots
	}
	box := opts.Outbox
	if box == nil {
		box = outbox.NewMemoryStore()
	}
	jr := opts.Journal
	if jr == nil {
		jr = journal.Nop()
	}
	cat := opts.Catalog
	if cat == nil {
		cat = msgcat.Default()
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	s := &Session{
		id:           id,
		tr:           tr,
		log:          logger.With(zap.String("session", id)),
		cat:          cat,
		box:          box,
		jr:           jr,
		resend:       opts.ResendPending,
		storeTimeout: timeout,
		registry:     lineup.NewRegistry(slots, opts.AwayName, opts.HomeName),
		tracker:      rotation.NewTracker(),
		recon:        NewReconciler(),
		hist:         history.NewLog(),
		phase:        PhaseSetup,
		conn:         tr.State(),
		subs:         make(map[int]Subscriber),
	}
	s.cbIDs.msg = tr.OnMessage(s.HandleFrame)
	s.cbIDs.state = tr.OnStateChange(s.onTransportState)
	s.cbIDs.err = tr.OnError(s.onTransportError)
	return s
}

// Close detaches the session from its transport. The transport itself is
// left to its owner.
func (s *Session) Close() {
	s.tr.RemoveMessageCallback(s.cbIDs.msg)
	s.tr.RemoveStateCallback(s.cbIDs.state)
	s.tr.RemoveErrorCallback(s.cbIDs.err)
}

func (s *Session) ID() string { return s.id }

func (s *Session) Subscribe(cb Subscriber) int {
	s.subM.Lock()
	defer s.subM.Unlock()
	s.nextSub++
	s.subs[s.nextSub] = cb
	return s.nextSub
}

func (s *Session) Unsubscribe(id int) {
	s.subM.Lock()
	delete(s.subs, id)
	s.subM.Unlock()
}

func (s *Session) notify(snap Snapshot) {
	s.subM.RLock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	cbs := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		cbs = append(cbs, s.subs[id])
	}
	s.subM.RUnlock()
	for _, cb := range cbs {
		if cb != nil {
			cb(snap)
		}
	}
}

// Snapshot returns the current state without notifying anyone.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked("")
}

func (s *Session) snapshotLocked(notice string) Snapshot {
	view := s.recon.View()
	offense := rotation.Offense(view)
	predicted := ""
	if b, err := s.predictLocked(view); err == nil {
		predicted = b.Label
	}
	pending := 0
	ctx, cancel := s.storeCtx()
	if cmds, err := s.box.Pending(ctx); err == nil {
		pending = len(cmds)
	}
	cancel()
	return Snapshot{
		Seq:        s.seq,
		SessionID:  s.id,
		Phase:      s.phase,
		Connection: s.conn,
		View:       view,
		Synced:     s.recon.Received(),
		GameOver:   s.gameOverLocked(view),
		Winner:     s.winner,
		Offense:    offense,
		Batter:     DisplayBatter(view, predicted),
		AwayName:   s.registry.TeamName(scoreproto.TeamAway),
		HomeName:   s.registry.TeamName(scoreproto.TeamHome),
		AwayLineup: s.registry.Players(scoreproto.TeamAway),
		HomeLineup: s.registry.Players(scoreproto.TeamHome),
		AwayCursor: s.tracker.Cursor(scoreproto.TeamAway),
		HomeCursor: s.tracker.Cursor(scoreproto.TeamHome),
		History:    s.hist.Entries(),
		Pending:    pending,
		Notice:     notice,
	}
}

// commit bumps the sequence, snapshots and releases the lock, then
// publishes. Callers hold mu.
func (s *Session) commit(notice string) {
	s.seq++
	snap := s.snapshotLocked(notice)
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.storeTimeout)
}

func (s *Session) gameOverLocked(view scoreproto.State) bool {
	return s.gameOver || (s.phase == PhaseInProgress && view.GameOver)
}

// predictLocked resolves the batter for the side on offense. A server
// batter_index wins over the local cursor.
func (s *Session) predictLocked(view scoreproto.State) (rotation.Batter, error) {
	team := rotation.Offense(view)
	active := s.registry.Active(team)
	if view.BatterIndex != nil {
		return rotation.At(team, *view.BatterIndex, active)
	}
	return s.tracker.Active(team, active)
}

func (s *Session) text(key string, data any, fallback string) string {
	return s.cat.RenderOr(key, data, fallback)
}

// ---- lineup editing ----

func (s *Session) AddPlayer(team scoreproto.Team) error {
	s.mu.Lock()
	if err := s.registry.AddPlayer(team); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit("")
	return nil
}

func (s *Session) RemovePlayer(team scoreproto.Team, index int) error {
	s.mu.Lock()
	if err := s.registry.RemovePlayer(team, index); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit("")
	return nil
}

func (s *Session) SetPlayer(team scoreproto.Team, index int, name string) error {
	s.mu.Lock()
	if err := s.registry.SetPlayer(team, index, name); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit("")
	return nil
}

// SetTeamName changes a display name only; the connection is untouched.
func (s *Session) SetTeamName(team scoreproto.Team, name string) error {
	s.mu.Lock()
	if err := s.registry.SetTeamName(team, name); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit("")
	return nil
}

// ---- commands ----

// StartGame sends SET_LINEUP, freezes the lineup and seeds the history.
func (s *Session) StartGame(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseInProgress {
		s.mu.Unlock()
		return ErrGameAlreadyStarted
	}
	if s.conn != livews.StateOpen {
		s.mu.Unlock()
		return ErrNotConnected
	}
	payload, err := s.registry.BuildStartPayload()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	id := outbox.NewID()
	if err := s.sendLocked(ctx, scoreproto.TypeSetLineup, id, scoreproto.NewSetLineup(id, payload.Away, payload.Home), true); err != nil {
		s.mu.Unlock()
		return err
	}

	s.registry.Freeze()
	s.phase = PhaseInProgress
	s.gameOver = false
	s.winner = ""
	s.tracker.Reset()
	s.hist.Seed(history.Entry{
		Text:  s.text("history.game_start", nil, "game start"),
		Score: scoreproto.ScoreLine(0, 0),
	})
	s.log.Info("session_game_started",
		zap.Int("away_players", len(payload.Away)),
		zap.Int("home_players", len(payload.Home)),
	)
	s.commit("")
	return nil
}

// SendResult sends one AB for the predicted batter and advances the cursor
// when the outcome ends the plate appearance.
func (s *Session) SendResult(ctx context.Context, outcome scoreproto.Outcome) error {
	if !outcome.Valid() {
		return invalidOutcome(string(outcome))
	}
	s.mu.Lock()
	if s.phase != PhaseInProgress {
		s.mu.Unlock()
		return ErrGameNotStarted
	}
	view := s.recon.View()
	if s.gameOverLocked(view) {
		s.mu.Unlock()
		return ErrGameOver
	}
	if s.conn != livews.StateOpen {
		s.mu.Unlock()
		return ErrNotConnected
	}
	batter, err := s.predictLocked(view)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	id := outbox.NewID()
	if err := s.sendLocked(ctx, scoreproto.TypeAtBat, id, scoreproto.NewAtBat(id, batter.Label, outcome), true); err != nil {
		s.mu.Unlock()
		return err
	}
	moved := s.tracker.Advance(batter.Team, outcome)
	s.log.Debug("session_at_bat_sent",
		zap.String("batter", batter.Label),
		zap.String("result", string(outcome)),
		zap.Bool("advanced", moved),
	)
	s.commit("")
	return nil
}

// ResetGame asks the server to reset. Local state changes only when the
// RESET acknowledgement arrives.
func (s *Session) ResetGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != livews.StateOpen {
		return ErrNotConnected
	}
	id := outbox.NewID()
	return s.sendLocked(ctx, scoreproto.TypeReset, id, scoreproto.NewReset(id), true)
}

// RequestScore asks the server to push a fresh STATE.
func (s *Session) RequestScore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != livews.StateOpen {
		return ErrNotConnected
	}
	return s.sendLocked(ctx, scoreproto.TypeScore, "", scoreproto.NewScore(), false)
}

// SetRunners overrides the occupied bases on the server. Duplicates are
// dropped and bases are sent in 1B, 2B, 3B order.
func (s *Session) SetRunners(ctx context.Context, runners []scoreproto.Base) error {
	seen := make(map[scoreproto.Base]bool, len(runners))
	for _, b := range runners {
		if !b.Valid() {
			return invalidBase(string(b))
		}
		seen[b] = true
	}
	ordered := make([]scoreproto.Base, 0, len(seen))
	for _, b := range scoreproto.Bases {
		if seen[b] {
			ordered = append(ordered, b)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != livews.StateOpen {
		return ErrNotConnected
	}
	return s.sendLocked(ctx, scoreproto.TypeSetRunners, "", scoreproto.NewSetRunners(ordered), false)
}

// sendLocked writes v and, when track is set, records it as pending. A
// failed write records nothing.
func (s *Session) sendLocked(ctx context.Context, kind, id string, v any, track bool) error {
	cmd, err := outbox.NewCommand(id, kind, v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := s.tr.Send(ctx, cmd.Payload); err != nil {
		s.log.Warn("session_send_failed", zap.String("type", kind), zap.Error(err))
		if errors.Is(err, livews.ErrNotConnected) {
			return ErrNotConnected
		}
		return err
	}
	s.journal(ctx, journal.DirOut, kind, cmd.Payload)
	if !track {
		return nil
	}
	sctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.box.Push(sctx, cmd); err != nil {
		s.log.Warn("session_outbox_push_failed", zap.String("type", kind), zap.Error(err))
	}
	return nil
}

func (s *Session) journal(ctx context.Context, dir journal.Direction, kind string, raw []byte) {
	if err := s.jr.Write(ctx, journal.NewRecord(s.id, dir, kind, raw)); err != nil {
		s.log.Warn("session_journal_failed", zap.String("dir", string(dir)), zap.Error(err))
	}
}

// ---- inbound ----

// HandleFrame decodes and applies one server frame. Malformed frames are
// logged and leave every piece of held state untouched.
func (s *Session) HandleFrame(data []byte) {
	msg, err := scoreproto.Decode(data)
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err != nil {
		s.journal(ctx, journal.DirIn, "", data)
		s.log.Warn("session_frame_rejected", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}
	s.journal(ctx, journal.DirIn, msg.Kind(), data)

	s.mu.Lock()
	notice, changed := s.applyLocked(ctx, msg)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.commit(notice)
}

func (s *Session) applyLocked(ctx context.Context, msg scoreproto.Inbound) (string, bool) {
	switch m := msg.(type) {
	case *scoreproto.StateMsg:
		s.recon.Replace(m.State)
		s.log.Debug("session_state_replaced", zap.String("inning", m.State.Inning), zap.Int("outs", m.State.Outs))
		return "", true

	case *scoreproto.LineupAck:
		s.ack(ctx, scoreproto.TypeSetLineup)
		return s.text("notice.lineup_set", nil, "lineup set"), true

	case *scoreproto.ResetAck:
		s.phase = PhaseSetup
		s.hist.Clear()
		s.tracker.Reset()
		s.registry.Unfreeze()
		s.gameOver = false
		s.winner = ""
		if err := s.box.Clear(ctx); err != nil {
			s.log.Warn("session_outbox_clear_failed", zap.Error(err))
		}
		s.log.Info("session_reset")
		return s.text("notice.reset", nil, "game reset"), true

	case *scoreproto.AtBatAck:
		s.ack(ctx, scoreproto.TypeAtBat)
		text := s.text("history.at_bat", map[string]any{
			"Symbol": scoreproto.Symbol(m.Result),
			"Batter": m.Batter,
			"Result": m.Result,
		}, fmt.Sprintf("%s %s: %s", scoreproto.Symbol(m.Result), m.Batter, m.Result))
		s.hist.Prepend(history.Entry{Text: text, Score: scoreproto.ScoreLine(m.Away, m.Home)})
		return "", true

	case *scoreproto.End:
		s.ack(ctx, scoreproto.TypeAtBat)
		s.gameOver = true
		s.winner = m.Winner
		winner := s.registry.TeamName(m.Winner)
		if !m.Winner.Valid() {
			winner = string(m.Winner)
		}
		text := s.text("history.game_end", map[string]any{"Winner": winner}, "game over: "+winner)
		score := s.text("history.final_score", map[string]any{"Away": m.Away, "Home": m.Home}, scoreproto.ScoreLine(m.Away, m.Home))
		s.hist.Prepend(history.Entry{Text: text, Score: score})
		s.log.Info("session_game_ended", zap.String("winner", string(m.Winner)), zap.Int("away", m.Away), zap.Int("home", m.Home))
		return "", true

	case *scoreproto.ServerError:
		s.ack(ctx, "")
		s.log.Warn("session_server_error", zap.String("msg", m.Message))
		return s.text("notice.server_error", map[string]any{"Message": m.Message}, "server error: "+m.Message), true

	case *scoreproto.Unknown:
		s.log.Debug("session_unknown_frame", zap.String("type", m.Type))
		return "", false
	}
	return "", false
}

// ack drops the oldest pending command of kind (any kind when empty).
func (s *Session) ack(ctx context.Context, kind string) {
	cmd, err := s.box.Ack(ctx, kind)
	if err != nil {
		s.log.Warn("session_outbox_ack_failed", zap.String("type", kind), zap.Error(err))
		return
	}
	if cmd != nil {
		s.log.Debug("session_command_acked", zap.String("type", cmd.Type), zap.String("id", cmd.ID))
	}
}

// ---- transport callbacks ----

func (s *Session) onTransportState(st livews.State) {
	s.mu.Lock()
	prev := s.conn
	s.conn = st
	notice := s.text("status."+strings.ToLower(string(st)), nil, string(st))

	switch st {
	case livews.StateOpen:
		if prev == livews.StateReconnecting && s.resend {
			if n := s.resendLocked(); n > 0 {
				notice = s.text("notice.resent", map[string]any{"Count": n}, fmt.Sprintf("resent %d", n))
			}
		}
	case livews.StateClosed, livews.StateReconnecting:
		if s.phase == PhaseInProgress {
			notice = s.text("notice.disconnected_in_game", nil, "disconnected")
		}
		if v := s.lastTransportErr.Load(); v != nil {
			if msg, _ := v.(string); msg != "" {
				notice += "\n" + s.text("notice.transport_error", map[string]any{"Message": msg}, msg)
			}
			s.lastTransportErr.Store("")
		}
	}
	s.log.Info("session_connection_state", zap.String("from", string(prev)), zap.String("to", string(st)))
	s.commit(notice)
}

// onTransportError runs on whatever goroutine hit the error, possibly one
// already holding mu inside Send, so it must not lock.
func (s *Session) onTransportError(err error) {
	s.log.Warn("session_transport_error", zap.Error(err))
	s.lastTransportErr.Store(err.Error())
}

// resendLocked replays every pending command in order and reports how many
// were written.
func (s *Session) resendLocked() int {
	ctx, cancel := s.storeCtx()
	defer cancel()
	pending, err := s.box.Pending(ctx)
	if err != nil {
		s.log.Warn("session_outbox_read_failed", zap.Error(err))
		return 0
	}
	sent := 0
	for _, cmd := range pending {
		if err := s.tr.Send(ctx, cmd.Payload); err != nil {
			s.log.Warn("session_resend_failed", zap.String("type", cmd.Type), zap.String("id", cmd.ID), zap.Error(err))
			break
		}
		s.journal(ctx, journal.DirOut, cmd.Type, cmd.Payload)
		sent++
	}
	if sent > 0 {
		s.log.Info("session_resent_pending", zap.Int("count", sent))
	}
	return sent
}
