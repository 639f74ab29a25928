package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/baseball-scorekeeper/internal/history"
	"github.com/park285/baseball-scorekeeper/internal/scoreboard"
	"github.com/park285/baseball-scorekeeper/internal/session"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

// Source is anything that can hand out a consistent session snapshot.
type Source interface {
	Snapshot() session.Snapshot
}

// StateDTO is the /state response body.
type StateDTO struct {
	Seq        uint64           `json:"seq"`
	SessionID  string           `json:"session_id"`
	Phase      string           `json:"phase"`
	Connection string           `json:"connection"`
	Synced     bool             `json:"synced"`
	GameOver   bool             `json:"game_over"`
	Winner     string           `json:"winner,omitempty"`
	Offense    string           `json:"offense"`
	Batter     string           `json:"batter"`
	Pending    int              `json:"pending"`
	State      scoreproto.State `json:"state"`
}

type LineupDTO struct {
	Away TeamDTO `json:"away"`
	Home TeamDTO `json:"home"`
}

type TeamDTO struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
	Cursor  int      `json:"cursor"`
}

type HistoryDTO struct {
	Entries []history.Entry `json:"entries"`
}

type errorDTO struct {
	Error string `json:"error"`
}

// Handler serves read-only views of the session for scoreboard overlays.
type Handler struct {
	src      Source
	renderer *scoreboard.Renderer
	logger   *zap.Logger
}

func NewHandler(src Source, renderer *scoreboard.Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = scoreboard.NewRenderer()
	}
	return &Handler{src: src, renderer: renderer, logger: logger}
}

func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorDTO{Error: "method not allowed"})
		return
	}
	switch strings.TrimRight(string(ctx.Path()), "/") {
	case "/healthz":
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case "/state":
		writeJSON(ctx, fasthttp.StatusOK, toStateDTO(h.src.Snapshot()))
	case "/history":
		h.handleHistory(ctx)
	case "/lineup":
		writeJSON(ctx, fasthttp.StatusOK, toLineupDTO(h.src.Snapshot()))
	case "/scoreboard.png":
		h.handleScoreboard(ctx)
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, errorDTO{Error: "not found"})
	}
}

func (h *Handler) handleHistory(ctx *fasthttp.RequestCtx) {
	entries := h.src.Snapshot().History
	if limit := ctx.QueryArgs().GetUintOrZero("limit"); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(ctx, fasthttp.StatusOK, HistoryDTO{Entries: entries})
}

func (h *Handler) handleScoreboard(ctx *fasthttp.RequestCtx) {
	snap := h.src.Snapshot()
	board := scoreboard.Board{
		State:    snap.View,
		AwayName: snap.AwayName,
		HomeName: snap.HomeName,
		Batter:   snap.Batter,
		GameOver: snap.GameOver,
	}
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	png, err := h.renderer.RenderPNG(rctx, board)
	if err != nil {
		h.logger.Warn("scoreboard_render_failed", zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, errorDTO{Error: "render failed"})
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(png)
}

func toStateDTO(s session.Snapshot) StateDTO {
	return StateDTO{
		Seq:        s.Seq,
		SessionID:  s.SessionID,
		Phase:      string(s.Phase),
		Connection: string(s.Connection),
		Synced:     s.Synced,
		GameOver:   s.GameOver,
		Winner:     string(s.Winner),
		Offense:    string(s.Offense),
		Batter:     s.Batter,
		Pending:    s.Pending,
		State:      s.View,
	}
}

func toLineupDTO(s session.Snapshot) LineupDTO {
	return LineupDTO{
		Away: TeamDTO{Name: s.AwayName, Players: nonNil(s.AwayLineup), Cursor: s.AwayCursor},
		Home: TeamDTO{Name: s.HomeName, Players: nonNil(s.HomeLineup), Cursor: s.HomeCursor},
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(b)
}

// Server wraps a fasthttp.Server around Handler.
type Server struct {
	srv    *fasthttp.Server
	logger *zap.Logger
}

func NewServer(h *Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &fasthttp.Server{
			Handler:      h.Handle,
			Name:         "scorekeeper-status",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("status_api_listening", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}
