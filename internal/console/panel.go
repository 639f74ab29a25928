package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/park285/baseball-scorekeeper/internal/history"
	"github.com/park285/baseball-scorekeeper/internal/session"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

const prompt = "> "

// Panel is the terminal control panel: it executes operator lines against a
// session and prints what changed.
type Panel struct {
	s   *session.Session
	f   *Formatter
	out io.Writer

	mu       sync.Mutex
	subID    int
	lastView *scoreproto.State
	lastLen  int
}

func NewPanel(s *session.Session, f *Formatter, out io.Writer) *Panel {
	return &Panel{s: s, f: f, out: out}
}

// Attach starts printing session updates.
func (p *Panel) Attach() {
	p.subID = p.s.Subscribe(p.onSnapshot)
}

func (p *Panel) Detach() {
	p.s.Unsubscribe(p.subID)
}

func (p *Panel) println(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *Panel) onSnapshot(snap session.Snapshot) {
	p.println(snap.Notice)
	if snap.Phase != session.PhaseInProgress {
		p.mu.Lock()
		p.lastView = nil
		p.lastLen = 0
		p.mu.Unlock()
		return
	}

	// history only grows at the front while a game is on, so the first
	// len-lastLen entries are the new ones
	p.mu.Lock()
	viewChanged := p.lastView == nil || !reflect.DeepEqual(*p.lastView, snap.View)
	added := len(snap.History) - p.lastLen
	if added < 0 {
		added = 0
	}
	v := snap.View
	p.lastView = &v
	p.lastLen = len(snap.History)
	p.mu.Unlock()

	for i := added - 1; i >= 0; i-- {
		p.println(p.f.History([]history.Entry{snap.History[i]}, 1))
	}
	if viewChanged {
		p.println(p.f.Board(snap))
	}
}

// Execute runs one operator line and reports whether the operator asked to
// quit.
func (p *Panel) Execute(ctx context.Context, line string) bool {
	cmd, err := ParseCommand(line)
	if errors.Is(err, ErrEmptyInput) {
		return false
	}
	if err != nil {
		p.println(p.f.Alert(cmd.Kind, err))
		return false
	}

	switch cmd.Kind {
	case CmdQuit:
		return true
	case CmdHelp:
		p.println(p.f.Help())
	case CmdLineup:
		p.println(p.f.Lineup(p.s.Snapshot()))
	case CmdHistory:
		p.println(p.f.History(p.s.Snapshot().History, 0))
	case CmdAdd:
		err = p.s.AddPlayer(cmd.Team)
	case CmdRemove:
		err = p.s.RemovePlayer(cmd.Team, cmd.Index)
	case CmdSet:
		err = p.s.SetPlayer(cmd.Team, cmd.Index, cmd.Name)
	case CmdTeam:
		err = p.s.SetTeamName(cmd.Team, cmd.Name)
	case CmdStart:
		err = p.s.StartGame(ctx)
	case CmdAtBat:
		err = p.s.SendResult(ctx, cmd.Outcome)
	case CmdScore:
		if err = p.s.RequestScore(ctx); err == nil {
			p.println(p.f.Board(p.s.Snapshot()))
		}
	case CmdRunners:
		err = p.s.SetRunners(ctx, cmd.Runners)
	case CmdReset:
		err = p.s.ResetGame(ctx)
	}
	if err != nil {
		p.println(p.f.Alert(cmd.Kind, err))
		return false
	}
	switch cmd.Kind {
	case CmdAdd, CmdRemove, CmdSet, CmdTeam:
		p.println(p.f.Lineup(p.s.Snapshot()))
	}
	return false
}

// Run reads lines from in until EOF, quit or ctx is done.
func (p *Panel) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	p.mu.Lock()
	fmt.Fprint(p.out, prompt)
	p.mu.Unlock()
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Execute(ctx, strings.TrimSpace(sc.Text())) {
			return nil
		}
		p.mu.Lock()
		fmt.Fprint(p.out, prompt)
		p.mu.Unlock()
	}
	return sc.Err()
}
