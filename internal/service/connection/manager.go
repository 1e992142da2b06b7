package connection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNoToken           = errors.New("no auth token")
	ErrNotConnected      = errors.New("stream not connected")
	ErrConnectionAborted = errors.New("connection aborted by disconnect")
	ErrUnknownStream     = errors.New("unknown stream")
)

// Handler receives the lifecycle and frames of every stream. All calls for
// one stream happen on that stream's read goroutine, in order.
type Handler interface {
	OnOpen(ctx context.Context, stream Stream)
	OnMessage(ctx context.Context, stream Stream, data []byte)
	OnClose(stream Stream, state State, err error)
}

// Options tunes dialing and keepalive.
type Options struct {
	// BaseURL is the ws:// or wss:// origin of the backend.
	BaseURL          string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
}

// DefaultOptions mirrors the backend's expectations for browser clients.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:          baseURL,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongWait:         60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// conn is the live socket of one stream.
type conn struct {
	stream Stream
	state  State
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *conn) writeJSON(v any, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(timeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) close(timeout time.Duration) {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.ws == nil {
			return
		}
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
}

// Manager keeps at most one live socket per stream.
type Manager struct {
	mu      sync.Mutex
	conns   map[Stream]*conn
	opts    Options
	dialer  *websocket.Dialer
	handler Handler
	logger  *zap.Logger
}

// NewManager creates a manager delivering stream events to handler.
func NewManager(opts Options, handler Handler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		conns:   make(map[Stream]*conn),
		opts:    opts,
		dialer:  &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout, Proxy: websocket.DefaultDialer.Proxy},
		handler: handler,
		logger:  logger,
	}
}

// URL returns the endpoint of stream with token in the query string.
func (m *Manager) URL(stream Stream, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(m.opts.BaseURL, "/") + "/ws/" + string(stream) + "/")
	if err != nil {
		return "", fmt.Errorf("build %s socket url: %w", stream, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens stream unless it is already connecting or open. ctx bounds
// only the handshake; the socket lives until Disconnect or a remote close.
func (m *Manager) Connect(ctx context.Context, stream Stream, token string) error {
	if !stream.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	if token == "" {
		return ErrNoToken
	}

	m.mu.Lock()
	if existing, ok := m.conns[stream]; ok {
		m.mu.Unlock()
		m.logger.Debug("socket already active", zap.String("stream", string(stream)), zap.String("state", existing.state.String()))
		return nil
	}
	connCtx, cancel := context.WithCancel(context.Background())
	c := &conn{stream: stream, state: StateConnecting, ctx: connCtx, cancel: cancel}
	m.conns[stream] = c
	m.mu.Unlock()

	endpoint, err := m.URL(stream, token)
	if err != nil {
		m.forget(c)
		return err
	}

	ws, resp, err := m.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		m.forget(c)
		if resp != nil {
			m.logger.Warn("socket handshake rejected", zap.String("stream", string(stream)), zap.Int("status", resp.StatusCode))
		}
		return fmt.Errorf("dial %s socket: %w", stream, err)
	}

	m.mu.Lock()
	if m.conns[stream] != c {
		// Disconnect ran while the handshake was in flight.
		m.mu.Unlock()
		_ = ws.Close()
		return ErrConnectionAborted
	}
	c.ws = ws
	c.state = StateOpen
	m.mu.Unlock()

	if m.opts.MaxMessageSize > 0 {
		ws.SetReadLimit(m.opts.MaxMessageSize)
	}
	if m.opts.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(m.opts.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(m.opts.PongWait))
		})
	}

	m.logger.Info("socket connected", zap.String("stream", string(stream)))

	go m.readPump(c)
	if m.opts.PingInterval > 0 {
		go m.pingLoop(c)
	}
	return nil
}

// Disconnect closes stream and clears its handle before returning.
func (m *Manager) Disconnect(stream Stream) {
	m.mu.Lock()
	c, ok := m.conns[stream]
	if ok {
		delete(m.conns, stream)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	c.close(m.opts.WriteTimeout)
	m.logger.Info("socket disconnected", zap.String("stream", string(stream)))
}

// DisconnectAll closes every stream.
func (m *Manager) DisconnectAll() {
	for _, stream := range Streams() {
		m.Disconnect(stream)
	}
}

// State returns the current state of stream.
func (m *Manager) State(stream Stream) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[stream]; ok {
		return c.state
	}
	return StateDisconnected
}

// Status returns the state of every stream.
func (m *Manager) Status() map[Stream]State {
	status := make(map[Stream]State, len(Streams()))
	for _, stream := range Streams() {
		status[stream] = m.State(stream)
	}
	return status
}

// Send writes v as a JSON frame on an open stream.
func (m *Manager) Send(stream Stream, v any) error {
	m.mu.Lock()
	c, ok := m.conns[stream]
	open := ok && c.state == StateOpen
	m.mu.Unlock()

	if !open {
		return fmt.Errorf("%w: %s", ErrNotConnected, stream)
	}
	if err := c.writeJSON(v, m.opts.WriteTimeout); err != nil {
		return fmt.Errorf("write %s frame: %w", stream, err)
	}
	return nil
}

// forget drops c if it is still the registered handle of its stream.
func (m *Manager) forget(c *conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[c.stream] != c {
		return false
	}
	delete(m.conns, c.stream)
	c.cancel()
	return true
}

func (m *Manager) readPump(c *conn) {
	log := m.logger.With(zap.String("stream", string(c.stream)))

	if m.handler != nil {
		m.handler.OnOpen(c.ctx, c.stream)
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			state := classifyClose(err)
			if !m.forget(c) {
				// Closed locally through Disconnect.
				log.Debug("read loop stopped after local close")
				if m.handler != nil {
					m.handler.OnClose(c.stream, StateClosed, nil)
				}
				return
			}
			c.close(m.opts.WriteTimeout)

			if state == StateErrored {
				log.Warn("socket errored", zap.Error(err))
			} else {
				log.Info("socket closed by server", zap.Error(err))
			}
			if m.handler != nil {
				m.handler.OnClose(c.stream, state, err)
			}
			return
		}

		if m.handler != nil {
			m.handler.OnMessage(c.ctx, c.stream, data)
		}
	}
}

func (m *Manager) pingLoop(c *conn) {
	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				m.logger.Debug("ping failed", zap.String("stream", string(c.stream)), zap.Error(err))
				return
			}
		}
	}
}

// classifyClose maps a read error to the terminal state it represents.
func classifyClose(err error) State {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return StateClosed
	}
	return StateErrored
}
