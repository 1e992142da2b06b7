// Package realtime ties the sockets to the chat and notification state: it
// follows auth transitions and routes every pushed event to its owner.
package realtime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/model/event"
	"github.com/zhouzirui/chatsync/internal/service/auth"
	"github.com/zhouzirui/chatsync/internal/service/chat"
	"github.com/zhouzirui/chatsync/internal/service/connection"
	"github.com/zhouzirui/chatsync/internal/service/notification"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

// Status is the auth and connection state reported to the adapter.
type Status struct {
	Authenticated bool                                   `json:"authenticated"`
	UserID        int64                                  `json:"userId,omitempty"`
	Streams       map[connection.Stream]connection.State `json:"streams"`
}

// Engine owns the connection manager and is its Handler.
type Engine struct {
	session *auth.Session
	conns   *connection.Manager
	chat    *chat.Service
	feed    *notification.Feed
	pub     ui.Publisher
	logger  *zap.Logger
}

// NewEngine builds the connection manager for opts and wires the chat
// service's mark_read requests to the chat socket.
func NewEngine(opts connection.Options, session *auth.Session, chatSvc *chat.Service, feed *notification.Feed, pub ui.Publisher, logger *zap.Logger) *Engine {
	if pub == nil {
		pub = ui.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		session: session,
		chat:    chatSvc,
		feed:    feed,
		pub:     pub,
		logger:  logger.With(zap.String("component", "realtime")),
	}
	e.conns = connection.NewManager(opts, e, logger.With(zap.String("component", "connection")))
	chatSvc.UseSocket(streamSocket{conns: e.conns, stream: connection.StreamChat})
	return e
}

// Login stores the credentials and opens both sockets. An empty token signs
// the user out instead.
func (e *Engine) Login(ctx context.Context, token string, userID int64) error {
	if token == "" {
		e.Logout()
		return nil
	}
	e.session.Set(token, userID)
	e.chat.SetSelf(userID)
	e.logger.Info("signed in", zap.Int64("user_id", userID))
	return e.Ensure(ctx)
}

// Ensure reconnects every disconnected stream while a token is present.
func (e *Engine) Ensure(ctx context.Context) error {
	token := e.session.Token()
	if token == "" {
		return nil
	}

	var errs []error
	for _, stream := range connection.Streams() {
		err := e.conns.Connect(ctx, stream, token)
		if err == nil || errors.Is(err, connection.ErrConnectionAborted) {
			continue
		}
		e.logger.Warn("failed to connect socket", zap.String("stream", string(stream)), zap.Error(err))
		errs = append(errs, fmt.Errorf("connect %s: %w", stream, err))
	}
	return errors.Join(errs...)
}

// Logout closes both sockets and drops every piece of user state.
func (e *Engine) Logout() {
	e.conns.DisconnectAll()
	e.session.Clear()
	e.chat.Reset()
	e.feed.Reset()
	e.pub.Publish(ui.Changed(ui.KindConnection))
	e.logger.Info("signed out")
}

// Status reports credentials and socket states.
func (e *Engine) Status() Status {
	return Status{
		Authenticated: e.session.Authenticated(),
		UserID:        e.session.UserID(),
		Streams:       e.conns.Status(),
	}
}

// OnOpen performs the initial full refresh of the stream's state.
func (e *Engine) OnOpen(ctx context.Context, stream connection.Stream) {
	e.pub.Publish(ui.Changed(ui.KindConnection))
	switch stream {
	case connection.StreamChat:
		_ = e.chat.LoadSessions(ctx)
	case connection.StreamNotifications:
		_ = e.feed.Load(ctx)
	}
}

// OnMessage decodes a frame and hands it to the owner of the stream.
// Frames that fail to decode are dropped.
func (e *Engine) OnMessage(ctx context.Context, stream connection.Stream, data []byte) {
	ev, err := event.Decode(data)
	if err != nil {
		e.logger.Warn("dropping socket frame", zap.String("stream", string(stream)), zap.Error(err), zap.ByteString("frame", data))
		return
	}

	switch stream {
	case connection.StreamChat:
		e.chat.HandleEvent(ctx, ev)
	case connection.StreamNotifications:
		e.feed.HandleEvent(ctx, ev)
	}
}

// OnClose reports the lost socket to renderers. Reconnection waits for the
// next auth transition.
func (e *Engine) OnClose(stream connection.Stream, state connection.State, err error) {
	e.logger.Debug("socket gone", zap.String("stream", string(stream)), zap.Stringer("state", state), zap.Error(err))
	e.pub.Publish(ui.Changed(ui.KindConnection))
}

type streamSocket struct {
	conns  *connection.Manager
	stream connection.Stream
}

func (s streamSocket) Send(v any) error {
	return s.conns.Send(s.stream, v)
}
