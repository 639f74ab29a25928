package livews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

type errorCallbackEntry struct {
	id       int
	callback ErrorCallback
}

// WebSocket is a single reconnecting duplex connection to the scoring
// server. One listener goroutine per connection delivers frames in order.
type WebSocket struct {
	wsURL  string
	logger *zap.Logger

	conn  *websocket.Conn
	connM sync.RWMutex

	state  State
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	errCbs   []errorCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration
	dialTimeout          time.Duration
	writeTimeout         time.Duration
	readLimit            int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

var _ Client = (*WebSocket)(nil)

type Option func(*WebSocket)

func WithLogger(l *zap.Logger) Option {
	return func(ws *WebSocket) {
		if l != nil {
			ws.logger = l
		}
	}
}

// WithPingInterval sets the keepalive period; zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(ws *WebSocket) { ws.pingInterval = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.dialTimeout = d
		}
	}
}

// WithWriteTimeout bounds Send when the caller's context has no deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.writeTimeout = d
		}
	}
}

func WithReadLimit(n int64) Option {
	return func(ws *WebSocket) { ws.readLimit = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(ws *WebSocket) { ws.headerProvider = h }
}

// NewWebSocket creates an unconnected client. After a dropped connection it
// redials up to maxReconnectAttempts times with exponential backoff starting
// at reconnectDelay; zero attempts means a drop is final.
func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, opts ...Option) *WebSocket {
	ws := &WebSocket{
		wsURL:                wsURL,
		logger:               zap.NewNop(),
		state:                StateClosed,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		dialTimeout:          10 * time.Second,
		writeTimeout:         5 * time.Second,
		stopCh:               make(chan struct{}),
	}
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Connect dials once. On failure the reconnect loop is started (when
// enabled) and the dial error is still returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if ws.isStopping() {
		return errors.New("websocket closed")
	}
	switch ws.State() {
	case StateOpen, StateConnecting, StateReconnecting:
		return nil
	}
	ws.setState(StateConnecting)

	conn, err := ws.dial(ctx)
	if err != nil {
		ws.logger.Warn("ws_connect_failed", zap.String("url", ws.wsURL), zap.Error(err))
		ws.emitError(err)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, ws.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ws.wsURL, err)
	}
	if ws.readLimit > 0 {
		conn.SetReadLimit(ws.readLimit)
	}
	return conn, nil
}

// attach publishes OPEN before the reader starts, so a connection that dies
// at once still ends in RECONNECTING or CLOSED rather than OPEN.
func (ws *WebSocket) attach(conn *websocket.Conn) {
	if ws.isStopping() {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
		return
	}
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()

	ws.logger.Info("ws_connected", zap.String("url", ws.wsURL))
	ws.setState(StateOpen)

	connCtx, connCancel := context.WithCancel(ws.rootCtx)
	ws.wg.Add(2)
	go ws.listen(connCtx, connCancel, conn)
	go ws.pingLoop(connCtx, conn)
}

// detach forgets conn if it is still current and closes it.
func (ws *WebSocket) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	ws.connM.Lock()
	if ws.conn == conn {
		ws.conn = nil
	}
	ws.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (ws *WebSocket) listen(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer ws.wg.Done()
	defer cancel()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ws.isStopping() {
				return
			}
			ws.detach(conn, websocket.StatusGoingAway, "reconnect")
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				ws.logger.Info("ws_closed_by_peer", zap.Error(err))
			default:
				ws.logger.Warn("ws_read_failed", zap.Error(err))
				ws.emitError(fmt.Errorf("read: %w", err))
			}
			ws.scheduleReconnect()
			return
		}
		if typ != websocket.MessageText {
			ws.logger.Debug("ws_binary_frame_ignored", zap.Int("bytes", len(data)))
			continue
		}

		ws.cbM.RLock()
		callbacks := make([]callbackEntry, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(data)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer ws.wg.Done()
	if ws.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := conn.Ping(pctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			// listen sees the closed conn and takes over the reconnect
			ws.logger.Warn("ws_ping_failed", zap.Int("failures", failures), zap.Error(err))
			_ = conn.Close(websocket.StatusGoingAway, "ping failure")
			return
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		ws.setState(StateClosed)
		return
	}
	ws.setState(StateReconnecting)

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			delay := backoffDuration(ws.reconnectDelay, attempt)
			ws.logger.Info("ws_reconnect_scheduled", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			timer := time.NewTimer(delay)
			select {
			case <-ws.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}

			conn, err := ws.dial(ws.rootCtx)
			if err != nil {
				ws.emitError(err)
				continue
			}
			ws.attach(conn)
			return
		}
		ws.logger.Warn("ws_reconnect_exhausted", zap.Int("attempts", ws.maxReconnectAttempts))
		ws.setState(StateClosed)
	}()
}

// Send writes v as one JSON text frame.
func (ws *WebSocket) Send(ctx context.Context, v any) error {
	ws.connM.RLock()
	conn := ws.conn
	ws.connM.RUnlock()
	if conn == nil || ws.State() != StateOpen {
		return ErrNotConnected
	}
	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, ws.writeTimeout)
		defer cancel()
	}
	if err := wsjson.Write(wctx, conn, v); err != nil {
		ws.emitError(err)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (ws *WebSocket) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) nextID() int {
	ws.nextCbID++
	return ws.nextCbID
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := ws.nextID()
	ws.msgCbs = append(ws.msgCbs, callbackEntry{id: id, callback: cb})
	return id
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := ws.nextID()
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: id, callback: cb})
	return id
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnError(cb ErrorCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := ws.nextID()
	ws.errCbs = append(ws.errCbs, errorCallbackEntry{id: id, callback: cb})
	return id
}

func (ws *WebSocket) RemoveErrorCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.errCbs {
		if cb.id == id {
			ws.errCbs = append(ws.errCbs[:i], ws.errCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) setState(state State) {
	ws.stateM.Lock()
	if ws.state == state {
		ws.stateM.Unlock()
		return
	}
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (ws *WebSocket) emitError(err error) {
	if err == nil {
		return
	}
	ws.cbM.RLock()
	callbacks := make([]errorCallbackEntry, len(ws.errCbs))
	copy(callbacks, ws.errCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(err)
		}
	}
}

// Close stops reconnecting, closes the connection and waits for the
// goroutines to exit or ctx to expire.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.connM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(StateClosed)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
