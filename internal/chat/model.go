package chat

import "time"

type Conversation struct {
	ID            int        `json:"id"`
	UserA         int        `json:"user_a"`
	UserB         int        `json:"user_b"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

func (c *Conversation) HasParticipant(userID int) bool {
	return c.UserA == userID || c.UserB == userID
}

// OtherParticipant returns the participant that is not userID. Callers must
// have verified membership first.
func (c *Conversation) OtherParticipant(userID int) int {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

type Message struct {
	ID             int        `json:"id"`
	ConversationID int        `json:"conversation_id"`
	SenderID       int        `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// Status derives the delivery state from the two set-once timestamps.
func (m *Message) Status() Status {
	switch {
	case m.ReadAt != nil:
		return StatusRead
	case m.DeliveredAt != nil:
		return StatusDelivered
	default:
		return StatusSent
	}
}
