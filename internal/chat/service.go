package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go-match/internal/apperr"
)

const (
	maxContentLen   = 1000
	defaultPageSize = 50
	maxPageSize     = 100
)

// Store is the persistence surface the message pipeline runs on.
type Store interface {
	GetOrCreateConversation(ctx context.Context, a, b int) (*Conversation, error)
	GetConversation(ctx context.Context, id int) (*Conversation, error)
	ListConversations(ctx context.Context, userID int) ([]Conversation, error)
	InsertMessage(ctx context.Context, conversationID, senderID int, content string) (*Message, error)
	GetMessage(ctx context.Context, id int) (*Message, error)
	ListMessages(ctx context.Context, conversationID, limit, offset int) ([]Message, error)
	MarkDelivered(ctx context.Context, messageID int, at time.Time) (bool, error)
	MarkRead(ctx context.Context, conversationID, actorID int, messageIDs []int, at time.Time) ([]Message, error)
}

// Events is the fan-out surface, implemented by the Hub.
type Events interface {
	Broadcast(conversationID int, ev Event)
	Notify(userID int, ev Event)
}

type Service struct {
	store  Store
	events Events
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, events Events, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Authorize returns the conversation if userID is one of its participants.
// Every chat operation, REST or socket, goes through this check.
func (s *Service) Authorize(ctx context.Context, conversationID, userID int) (*Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) StartConversation(ctx context.Context, userID, targetID int) (*Conversation, error) {
	if userID == targetID {
		return nil, apperr.ErrSelfConversation
	}
	return s.store.GetOrCreateConversation(ctx, userID, targetID)
}

func (s *Service) ListConversations(ctx context.Context, userID int) ([]Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

func (s *Service) ListMessages(ctx context.Context, conversationID, userID, page, pageSize int) ([]Message, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.store.ListMessages(ctx, conversationID, pageSize, pageSize*(page-1))
}

// Send validates, persists, and fans out a message. The new message starts in
// the Sent state; it reaches the room and, separately, the recipient's
// private channel so it lands even when their room subscription is closed.
func (s *Service) Send(ctx context.Context, conversationID, senderID int, content string) (*Message, error) {
	conv, err := s.Authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return nil, apperr.ErrContentTooLong
	}

	msg, err := s.store.InsertMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	ev := newMessageEvent(msg)
	s.events.Broadcast(conversationID, ev)
	s.events.Notify(conv.OtherParticipant(senderID), ev)
	return msg, nil
}

// MarkDelivered transitions a message Sent -> Delivered. Repeat calls are
// no-op successes; the sender cannot deliver-ack their own message.
func (s *Service) MarkDelivered(ctx context.Context, messageID, actorID int) (*Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, msg.ConversationID, actorID); err != nil {
		return nil, err
	}
	if actorID == msg.SenderID {
		return nil, apperr.ErrInvalidRecipient
	}
	if msg.DeliveredAt != nil {
		return msg, nil
	}

	at := s.now().UTC()
	updated, err := s.store.MarkDelivered(ctx, messageID, at)
	if err != nil {
		return nil, err
	}
	if updated {
		msg.DeliveredAt = &at
		s.events.Notify(msg.SenderID, statusEvent(msg, StatusDelivered))
	}
	return msg, nil
}

// MarkRead marks the given messages (or all unread ones) in the conversation
// as read by the actor. Messages the actor sent are never affected. Each
// transitioned message's sender is notified.
func (s *Service) MarkRead(ctx context.Context, conversationID, actorID int, messageIDs []int) ([]Message, error) {
	if _, err := s.Authorize(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	msgs, err := s.store.MarkRead(ctx, conversationID, actorID, messageIDs, s.now().UTC())
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		s.events.Notify(msgs[i].SenderID, statusEvent(&msgs[i], StatusRead))
	}
	return msgs, nil
}

// Typing broadcasts a fire-and-forget typing indicator. Nothing is persisted
// but the room authorization still applies.
func (s *Service) Typing(ctx context.Context, conversationID, userID int) error {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return err
	}
	s.events.Broadcast(conversationID, typingEvent(conversationID, userID))
	return nil
}

// MatchFound pushes a mutual-match signal to both users' private channels.
// It satisfies the matching engine's Notifier.
func (s *Service) MatchFound(a, b int) {
	s.events.Notify(a, matchEvent(b))
	s.events.Notify(b, matchEvent(a))
}
