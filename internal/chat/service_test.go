package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go-match/internal/apperr"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
)

// fakeStore is an in-memory Store with the same set-once semantics as the
// SQL repository.
type fakeStore struct {
	conversations map[int]*Conversation
	messages      map[int]*Message
	nextConvID    int
	nextMsgID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[int]*Conversation),
		messages:      make(map[int]*Message),
		nextConvID:    1,
		nextMsgID:     1,
	}
}

func (f *fakeStore) GetOrCreateConversation(_ context.Context, a, b int) (*Conversation, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, c := range f.conversations {
		if c.UserA == lo && c.UserB == hi {
			return c, nil
		}
	}
	c := &Conversation{ID: f.nextConvID, UserA: lo, UserB: hi, CreatedAt: time.Now()}
	f.nextConvID++
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id int) (*Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, apperr.ErrConversationNotFound
	}
	return c, nil
}

func (f *fakeStore) ListConversations(_ context.Context, userID int) ([]Conversation, error) {
	var out []Conversation
	for _, c := range f.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertMessage(_ context.Context, conversationID, senderID int, content string) (*Message, error) {
	m := &Message{
		ID:             f.nextMsgID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.nextMsgID++
	f.messages[m.ID] = m

	conv := f.conversations[conversationID]
	conv.LastMessage = &m.Content
	conv.LastMessageAt = &m.CreatedAt
	return m, nil
}

func (f *fakeStore) GetMessage(_ context.Context, id int) (*Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, apperr.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID, limit, offset int) ([]Message, error) {
	var out []Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, messageID int, at time.Time) (bool, error) {
	m, ok := f.messages[messageID]
	if !ok || m.DeliveredAt != nil {
		return false, nil
	}
	m.DeliveredAt = &at
	return true, nil
}

func (f *fakeStore) MarkRead(_ context.Context, conversationID, actorID int, messageIDs []int, at time.Time) ([]Message, error) {
	wanted := map[int]bool{}
	for _, id := range messageIDs {
		wanted[id] = true
	}

	var out []Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID || m.SenderID == actorID || m.ReadAt != nil {
			continue
		}
		if len(messageIDs) > 0 && !wanted[m.ID] {
			continue
		}
		m.ReadAt = &at
		if m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
		out = append(out, *m)
	}
	return out, nil
}

type recordedEvent struct {
	scope  scope
	target int
	event  Event
}

type fakeEvents struct {
	events []recordedEvent
}

func (f *fakeEvents) Broadcast(conversationID int, ev Event) {
	f.events = append(f.events, recordedEvent{scope: scopeRoom, target: conversationID, event: ev})
}

func (f *fakeEvents) Notify(userID int, ev Event) {
	f.events = append(f.events, recordedEvent{scope: scopeUser, target: userID, event: ev})
}

func (f *fakeEvents) ofType(t EventType) []recordedEvent {
	var out []recordedEvent
	for _, e := range f.events {
		if e.event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T, store Store, events *fakeEvents) *Service {
	t.Helper()
	return NewService(store, events, slogt.New(t))
}

func TestService_StartConversation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeEvents{})

	if _, err := svc.StartConversation(context.Background(), 1, 1); !errors.Is(err, apperr.ErrSelfConversation) {
		t.Errorf("self conversation: got %v, want ErrSelfConversation", err)
	}

	first, err := svc.StartConversation(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Same pair in either order resolves to the same conversation.
	second, err := svc.StartConversation(context.Background(), 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("got distinct conversations %d and %d for one pair", first.ID, second.ID)
	}
}

func TestService_Send(t *testing.T) {
	tests := []struct {
		name     string
		senderID int
		content  string
		wantErr  error
	}{
		{name: "NonParticipant", senderID: 3, content: "hi", wantErr: apperr.ErrNotParticipant},
		{name: "Empty", senderID: 1, content: "   ", wantErr: apperr.ErrEmptyContent},
		{name: "TooLong", senderID: 1, content: strings.Repeat("x", 1001), wantErr: apperr.ErrContentTooLong},
		{name: "OK", senderID: 1, content: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			events := &fakeEvents{}
			svc := newTestService(t, store, events)

			conv, err := svc.StartConversation(context.Background(), 1, 2)
			if err != nil {
				t.Fatal(err)
			}

			msg, err := svc.Send(context.Background(), conv.ID, tt.senderID, tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				if len(store.messages) != 0 {
					t.Errorf("store has %d messages, want 0 after rejection", len(store.messages))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if msg.Status() != StatusSent {
				t.Errorf("new message status = %q, want %q", msg.Status(), StatusSent)
			}
			if store.conversations[conv.ID].LastMessage == nil || *store.conversations[conv.ID].LastMessage != "hello" {
				t.Error("conversation last-message summary not updated")
			}

			want := []recordedEvent{
				{scope: scopeRoom, target: conv.ID, event: newMessageEvent(msg)},
				{scope: scopeUser, target: 2, event: newMessageEvent(msg)},
			}
			if diff := cmp.Diff(want, events.events, cmp.AllowUnexported(recordedEvent{})); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_MarkDelivered(t *testing.T) {
	store := newFakeStore()
	events := &fakeEvents{}
	svc := newTestService(t, store, events)

	conv, _ := svc.StartConversation(context.Background(), 1, 2)
	msg, err := svc.Send(context.Background(), conv.ID, 1, "hi")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MarkDelivered(context.Background(), 999, 2); !errors.Is(err, apperr.ErrMessageNotFound) {
		t.Errorf("missing message: got %v, want ErrMessageNotFound", err)
	}
	if _, err := svc.MarkDelivered(context.Background(), msg.ID, 3); !errors.Is(err, apperr.ErrNotParticipant) {
		t.Errorf("outsider: got %v, want ErrNotParticipant", err)
	}
	if _, err := svc.MarkDelivered(context.Background(), msg.ID, 1); !errors.Is(err, apperr.ErrInvalidRecipient) {
		t.Errorf("sender self-ack: got %v, want ErrInvalidRecipient", err)
	}

	got, err := svc.MarkDelivered(context.Background(), msg.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status() != StatusDelivered {
		t.Errorf("status = %q, want %q", got.Status(), StatusDelivered)
	}

	statuses := events.ofType(EventMessageStatus)
	if len(statuses) != 1 || statuses[0].target != 1 || statuses[0].event.Status != StatusDelivered {
		t.Fatalf("want one delivered status event to sender, got %+v", statuses)
	}

	// Second call is an idempotent no-op: success, unchanged timestamp, no
	// extra notification.
	before := *store.messages[msg.ID].DeliveredAt
	again, err := svc.MarkDelivered(context.Background(), msg.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !again.DeliveredAt.Equal(before) {
		t.Error("repeat MarkDelivered changed delivered_at")
	}
	if got := events.ofType(EventMessageStatus); len(got) != 1 {
		t.Errorf("repeat MarkDelivered emitted %d status events, want 1", len(got))
	}
}

func TestService_MarkRead_BackfillsDelivered(t *testing.T) {
	store := newFakeStore()
	events := &fakeEvents{}
	svc := newTestService(t, store, events)

	conv, _ := svc.StartConversation(context.Background(), 1, 2)
	msg, err := svc.Send(context.Background(), conv.ID, 1, "hi")
	if err != nil {
		t.Fatal(err)
	}

	// Read straight from Sent: delivered must be backfilled with the same
	// instant so "read but not delivered" is never observable.
	read, err := svc.MarkRead(context.Background(), conv.ID, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 1 {
		t.Fatalf("got %d messages read, want 1", len(read))
	}
	stored := store.messages[msg.ID]
	if stored.Status() != StatusRead {
		t.Errorf("status = %q, want %q", stored.Status(), StatusRead)
	}
	if !stored.DeliveredAt.Equal(*stored.ReadAt) {
		t.Errorf("delivered_at %v != read_at %v", stored.DeliveredAt, stored.ReadAt)
	}

	statuses := events.ofType(EventMessageStatus)
	if len(statuses) != 1 || statuses[0].target != 1 || statuses[0].event.Status != StatusRead {
		t.Fatalf("want one read status event to sender, got %+v", statuses)
	}
}

func TestService_MarkRead_OnlyAffectsMessagesAddressedToActor(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeEvents{})

	conv, _ := svc.StartConversation(context.Background(), 1, 2)
	mine, err := svc.Send(context.Background(), conv.ID, 1, "from me")
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := svc.Send(context.Background(), conv.ID, 2, "from them")
	if err != nil {
		t.Fatal(err)
	}

	// Actor 1 passes both ids explicitly; only the message they received
	// may transition.
	read, err := svc.MarkRead(context.Background(), conv.ID, 1, []int{mine.ID, theirs.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 1 || read[0].ID != theirs.ID {
		t.Fatalf("read = %+v, want only message %d", read, theirs.ID)
	}
	if store.messages[mine.ID].ReadAt != nil {
		t.Error("actor marked their own sent message as read")
	}
}

func TestService_MarkRead_RequiresParticipant(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeEvents{})

	conv, _ := svc.StartConversation(context.Background(), 1, 2)
	if _, err := svc.MarkRead(context.Background(), conv.ID, 3, nil); !errors.Is(err, apperr.ErrNotParticipant) {
		t.Errorf("got %v, want ErrNotParticipant", err)
	}
}

func TestService_Typing(t *testing.T) {
	store := newFakeStore()
	events := &fakeEvents{}
	svc := newTestService(t, store, events)

	conv, _ := svc.StartConversation(context.Background(), 1, 2)

	if err := svc.Typing(context.Background(), conv.ID, 3); !errors.Is(err, apperr.ErrNotParticipant) {
		t.Errorf("outsider typing: got %v, want ErrNotParticipant", err)
	}
	if err := svc.Typing(context.Background(), conv.ID, 1); err != nil {
		t.Fatal(err)
	}

	typing := events.ofType(EventUserTyping)
	if len(typing) != 1 || typing[0].scope != scopeRoom || typing[0].event.UserID != 1 {
		t.Errorf("typing events = %+v, want one room broadcast from user 1", typing)
	}
}

func TestService_MatchFound(t *testing.T) {
	events := &fakeEvents{}
	svc := newTestService(t, newFakeStore(), events)

	svc.MatchFound(1, 2)

	want := []recordedEvent{
		{scope: scopeUser, target: 1, event: matchEvent(2)},
		{scope: scopeUser, target: 2, event: matchEvent(1)},
	}
	if diff := cmp.Diff(want, events.events, cmp.AllowUnexported(recordedEvent{})); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
