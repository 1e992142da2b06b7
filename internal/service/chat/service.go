package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/model/chat"
	"github.com/zhouzirui/chatsync/internal/model/event"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

var (
	ErrEmptyMessage   = errors.New("message needs text or a file")
	ErrNoConversation = errors.New("no conversation selected")
	ErrInvalidUser    = errors.New("invalid user id")
	ErrSelfChat       = errors.New("cannot chat with yourself")
)

// alertPreviewLen caps the message excerpt shown in a new-message alert.
const alertPreviewLen = 30

// API is the part of the backend the chat service needs.
type API interface {
	FetchSessions(ctx context.Context) ([]chat.Conversation, error)
	FetchHistory(ctx context.Context, chatID int64) ([]chat.Message, error)
	SendMessage(ctx context.Context, receiver int64, content string, file *chat.Attachment) (chat.Message, error)
	MarkChatRead(ctx context.Context, chatID int64) error
	InitializeChat(ctx context.Context, chatID int64) error
}

// Socket sends frames on the chat socket.
type Socket interface {
	Send(v any) error
}

// OpenChat is the intent raised by UI outside the chat widget (e.g. a
// member profile's "chat with me" button).
type OpenChat struct {
	UserID    int64  `json:"userId"`
	IsNewChat bool   `json:"isNewChat"`
	Name      string `json:"name,omitempty"`
}

// Service keeps conversations, unread flags and the visible message log in
// sync with the backend. Every state transition happens under mu; network
// calls happen outside it and their results are checked for relevance
// before being applied.
type Service struct {
	mu     sync.Mutex
	store  *Store
	unread *Tracker
	log    *Log

	selfID   int64
	activeID int64
	open     bool

	// sessionsRequested/sessionsApplied order concurrent list reloads.
	sessionsRequested uint64
	sessionsApplied   uint64

	api    API
	socket Socket
	pub    ui.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the chat state to api and publishes changes to pub.
func NewService(api API, pub ui.Publisher, logger *zap.Logger) *Service {
	if pub == nil {
		pub = ui.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore()
	return &Service{
		store:  store,
		unread: NewTracker(store),
		log:    NewLog(),
		api:    api,
		pub:    pub,
		logger: logger.With(zap.String("component", "chat")),
		now:    time.Now,
	}
}

// UseSocket sets where mark_read confirmation requests are sent.
func (s *Service) UseSocket(socket Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.socket = socket
}

// SetSelf records the signed-in user's id.
func (s *Service) SetSelf(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfID = userID
}

// Reset drops every piece of state, e.g. on logout.
func (s *Service) Reset() {
	s.mu.Lock()
	s.store.Replace(nil)
	s.log.Reset(0)
	s.selfID = 0
	s.activeID = 0
	s.open = false
	s.sessionsApplied = s.sessionsRequested
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))
	s.pub.Publish(ui.Changed(ui.KindMessages))
}

// SetOpen records whether the chat panel is visible. The active conversation
// counts as displayed only while the panel is open.
func (s *Service) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// LoadSessions replaces the conversation list with the server's. On failure
// the previous list is kept.
func (s *Service) LoadSessions(ctx context.Context) error {
	s.mu.Lock()
	s.sessionsRequested++
	seq := s.sessionsRequested
	s.mu.Unlock()

	sessions, err := s.api.FetchSessions(ctx)
	if err != nil {
		s.logger.Warn("failed to load chat sessions", zap.Error(err))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to load chat sessions", ""))
		return fmt.Errorf("load chat sessions: %w", err)
	}

	s.mu.Lock()
	if seq <= s.sessionsApplied {
		s.mu.Unlock()
		s.logger.Debug("discarding stale session list", zap.Uint64("seq", seq))
		return nil
	}
	s.sessionsApplied = seq
	s.store.Replace(sessions)
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))
	return nil
}

// SelectSession makes id the active conversation: its log is loaded fresh
// and it is marked read, locally at once and then on the server.
func (s *Service) SelectSession(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	s.activeID = id
	s.log.Reset(id)
	seq := s.log.BeginLoad()
	s.unread.MarkRead(id)
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))
	s.pub.Publish(ui.Changed(ui.KindMessages))

	historyErr := s.loadHistory(ctx, id, seq)
	readErr := s.markRead(ctx, id)
	return errors.Join(historyErr, readErr)
}

// StartNewSession opens a conversation with otherUserID, creating an empty
// one locally and on the server when none exists yet.
func (s *Service) StartNewSession(ctx context.Context, otherUserID int64, name string) error {
	if otherUserID <= 0 {
		return ErrInvalidUser
	}

	s.mu.Lock()
	if s.selfID != 0 && otherUserID == s.selfID {
		s.mu.Unlock()
		s.pub.Publish(ui.Alert(ui.LevelError, "You cannot chat with yourself", ""))
		return ErrSelfChat
	}
	if s.store.Has(otherUserID) {
		s.mu.Unlock()
		return s.SelectSession(ctx, otherUserID)
	}
	s.store.Add(otherUserID, name)
	s.activeID = otherUserID
	s.log.Reset(otherUserID)
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))
	s.pub.Publish(ui.Changed(ui.KindMessages))

	if err := s.api.InitializeChat(ctx, otherUserID); err != nil {
		s.logger.Warn("failed to initialize chat", zap.Int64("chat_id", otherUserID), zap.Error(err))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to initialize chat", ""))
		return fmt.Errorf("initialize chat %d: %w", otherUserID, err)
	}
	return nil
}

// OpenChat handles the openChat intent: the panel is opened and the
// conversation selected, or created when the intent asks for a new chat.
func (s *Service) OpenChat(ctx context.Context, intent OpenChat) error {
	s.SetOpen(true)
	if intent.IsNewChat {
		return s.StartNewSession(ctx, intent.UserID, intent.Name)
	}
	return s.SelectSession(ctx, intent.UserID)
}

// ViewFromAlert is the "View" action of a new-message alert.
func (s *Service) ViewFromAlert(ctx context.Context, senderID int64) error {
	s.SetOpen(true)
	return s.SelectSession(ctx, senderID)
}

// SendMessage sends text and/or file to conversationID. While the request is
// in flight a pending copy is shown; it is replaced by the server's message
// on success and removed on failure.
func (s *Service) SendMessage(ctx context.Context, conversationID int64, text string, file *chat.Attachment) (chat.Message, error) {
	if conversationID == 0 {
		s.pub.Publish(ui.Alert(ui.LevelError, "No conversation selected", ""))
		return chat.Message{}, ErrNoConversation
	}
	if strings.TrimSpace(text) == "" && file == nil {
		s.pub.Publish(ui.Alert(ui.LevelError, "Please provide a message or file", ""))
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	shown := s.log.ConversationID() == conversationID
	var pending chat.Message
	if shown {
		var f *chat.File
		if file != nil {
			f = &chat.File{Title: file.Name, Type: file.ContentType}
		}
		pending = s.log.AppendPending(text, f, s.now())
	}
	s.mu.Unlock()

	if shown {
		s.pub.Publish(ui.Changed(ui.KindMessages))
	}

	sent, err := s.api.SendMessage(ctx, conversationID, text, file)
	if err != nil {
		if shown {
			s.mu.Lock()
			s.log.Discard(pending.ClientID)
			s.mu.Unlock()
			s.pub.Publish(ui.Changed(ui.KindMessages))
		}
		s.logger.Warn("failed to send message", zap.Int64("chat_id", conversationID), zap.Error(err))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to send message", err.Error()))
		return chat.Message{}, fmt.Errorf("send message to %d: %w", conversationID, err)
	}

	s.mu.Lock()
	if shown {
		s.log.Confirm(conversationID, pending.ClientID, sent)
	}
	s.store.PatchLastMessage(conversationID, chat.Preview(text, file != nil))
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindMessages))
	s.pub.Publish(ui.Changed(ui.KindSessions))
	return sent, nil
}

// MarkAllRead clears every unread flag locally and on the server.
func (s *Service) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	ids := s.unread.MarkAllRead()
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))

	var errs []error
	for _, id := range ids {
		if err := s.api.MarkChatRead(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("mark chat %d read: %w", id, err))
		}
	}
	if len(errs) > 0 {
		s.logger.Warn("failed to mark chats read", zap.Int("failures", len(errs)))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to mark chats as read", ""))
		_ = s.LoadSessions(ctx)
	}
	return errors.Join(errs...)
}

// HandleEvent folds one decoded chat socket event into the state.
func (s *Service) HandleEvent(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.ChatMessage:
		s.handleChatMessage(ctx, e.Message)
	case event.ReadStatusUpdate:
		s.mu.Lock()
		resync := s.unread.Apply(e)
		s.mu.Unlock()
		s.pub.Publish(ui.Changed(ui.KindSessions))
		if resync {
			_ = s.LoadSessions(ctx)
		}
	case event.SessionsUpdated:
		_ = s.LoadSessions(ctx)
	case event.Error:
		s.logger.Warn("chat socket reported an error", zap.String("error", e.Text()))
		s.pub.Publish(ui.Alert(ui.LevelError, e.Text(), ""))
	default:
		s.logger.Debug("ignoring chat event", zap.String("type", ev.Type()))
	}
}

func (s *Service) handleChatMessage(ctx context.Context, msg event.IncomingMessage) {
	s.mu.Lock()
	own := s.selfID != 0 && msg.SenderID == s.selfID
	peer := msg.Peer(s.selfID)
	displayed := s.open && s.activeID == peer && s.log.ConversationID() == peer
	known := s.store.PatchLastMessage(peer, chat.Preview(msg.Content, msg.File != nil))
	if known && !displayed && !own {
		s.unread.Inbound(peer)
	}
	var seq uint64
	if displayed {
		seq = s.log.BeginLoad()
	}
	s.mu.Unlock()

	s.pub.Publish(ui.Changed(ui.KindSessions))
	if !own {
		s.pub.Publish(messageAlert(msg))
	}

	if displayed {
		_ = s.loadHistory(ctx, peer, seq)
	}
	if !known {
		_ = s.LoadSessions(ctx)
	}
}

func (s *Service) loadHistory(ctx context.Context, id int64, seq uint64) error {
	history, err := s.api.FetchHistory(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load chat history", zap.Int64("chat_id", id), zap.Error(err))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to load chat messages", ""))
		return fmt.Errorf("load history of %d: %w", id, err)
	}

	s.mu.Lock()
	applied := s.log.ApplyHistory(id, seq, history)
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("discarding stale chat history", zap.Int64("chat_id", id), zap.Uint64("seq", seq))
		return nil
	}
	s.pub.Publish(ui.Changed(ui.KindMessages))
	return nil
}

func (s *Service) markRead(ctx context.Context, id int64) error {
	if err := s.api.MarkChatRead(ctx, id); err != nil {
		s.logger.Warn("failed to mark chat read", zap.Int64("chat_id", id), zap.Error(err))
		s.pub.Publish(ui.Alert(ui.LevelError, "Failed to mark chat as read", ""))
		_ = s.LoadSessions(ctx)
		return fmt.Errorf("mark chat %d read: %w", id, err)
	}

	s.mu.Lock()
	socket := s.socket
	s.mu.Unlock()
	if socket == nil {
		return nil
	}
	if err := socket.Send(event.NewMarkRead(id)); err != nil {
		s.logger.Debug("could not request read status over socket", zap.Int64("chat_id", id), zap.Error(err))
	}
	return nil
}

// Sessions returns the conversation list.
func (s *Service) Sessions() []chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Messages returns the conversation on screen and its log.
func (s *Service) Messages() (int64, []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.ConversationID(), s.log.Messages()
}

// ActiveID returns the selected conversation, 0 for none.
func (s *Service) ActiveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// IsOpen reports whether the chat panel is visible.
func (s *Service) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// AnyUnread is the global unread indicator.
func (s *Service) AnyUnread() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread.Any()
}

func messageAlert(msg event.IncomingMessage) ui.Update {
	description := chat.PreviewDefault
	switch {
	case strings.TrimSpace(msg.Content) != "":
		description = truncate(msg.Content, alertPreviewLen)
	case msg.File != nil && msg.File.Title != "":
		description = "Sent a file: " + msg.File.Title
	case msg.File != nil:
		description = chat.PreviewFile
	}

	update := ui.Alert(ui.LevelInfo, "New message from "+msg.SenderName, description)
	update.Toast.Action = &ui.Action{Label: "View", SenderID: msg.SenderID}
	return update
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
