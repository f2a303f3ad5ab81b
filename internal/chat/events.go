package chat

import "time"

// EventType names the server-pushed websocket events.
type EventType string

const (
	EventNewMessage    EventType = "new_message"
	EventMessageStatus EventType = "message_status_update"
	EventUserOnline    EventType = "user_online_status"
	EventUserTyping    EventType = "user_typing"
	EventNewMatch      EventType = "new_match"
	EventJoined        EventType = "joined_conversation"
	EventError         EventType = "error"
)

// Event is the envelope written to websocket clients. Only the fields
// relevant to the event type are set.
type Event struct {
	Type           EventType  `json:"type"`
	ConversationID int        `json:"conversation_id,omitempty"`
	Message        *Message   `json:"message,omitempty"`
	MessageID      int        `json:"message_id,omitempty"`
	Status         Status     `json:"status,omitempty"`
	UserID         int        `json:"user_id,omitempty"`
	Online         *bool      `json:"online,omitempty"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func newMessageEvent(m *Message) Event {
	return Event{Type: EventNewMessage, ConversationID: m.ConversationID, Message: m}
}

func statusEvent(m *Message, status Status) Event {
	return Event{
		Type:           EventMessageStatus,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Status:         status,
	}
}

func typingEvent(conversationID, userID int) Event {
	return Event{Type: EventUserTyping, ConversationID: conversationID, UserID: userID}
}

func onlineEvent(userID int, online bool, lastSeen time.Time) Event {
	ev := Event{Type: EventUserOnline, UserID: userID, Online: &online}
	if !online {
		ev.LastSeen = &lastSeen
	}
	return ev
}

func matchEvent(partnerID int) Event {
	return Event{Type: EventNewMatch, UserID: partnerID}
}

func joinedEvent(conversationID int) Event {
	return Event{Type: EventJoined, ConversationID: conversationID}
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}
