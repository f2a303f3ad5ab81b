package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go-match/internal/apperr"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.

	// Per-command deadline for service calls made from the read pump.
	commandTimeout = 10 * time.Second
)

// Client is a middleman between one websocket connection and the hub. A user
// may hold several clients at once (multi-device); each gets its own session
// token.
type Client struct {
	hub     *Hub
	service *Service
	conn    *websocket.Conn
	logger  *slog.Logger

	send chan Event

	userID       int
	username     string
	sessionToken string
}

func newSessionToken() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func NewClient(hub *Hub, service *Service, conn *websocket.Conn, userID int, username string, logger *slog.Logger) *Client {
	return &Client{
		hub:          hub,
		service:      service,
		conn:         conn,
		logger:       logger,
		send:         make(chan Event, 256),
		userID:       userID,
		username:     username,
		sessionToken: newSessionToken(),
	}
}

// command is the envelope clients send over the socket.
type command struct {
	Type           string `json:"type"`
	ConversationID int    `json:"conversation_id,omitempty"`
	MessageID      int    `json:"message_id,omitempty"`
	MessageIDs     []int  `json:"message_ids,omitempty"`
	Content        string `json:"content,omitempty"`
}

// ReadPump pumps commands from the websocket connection into the services.
// Its deferred unregister is the single cleanup path for the session, whether
// the peer left cleanly, the transport dropped, or the server is closing.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			break
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.reportError(errors.New("malformed command"))
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch runs one client command. Failures become error events scoped to
// this session only; other participants never see them.
func (c *Client) dispatch(cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case "join_conversation":
		if _, err := c.service.Authorize(ctx, cmd.ConversationID, c.userID); err != nil {
			c.reportError(err)
			return
		}
		c.hub.Subscribe(c, cmd.ConversationID)
		c.enqueue(joinedEvent(cmd.ConversationID))

	case "leave_conversation":
		c.hub.Unsubscribe(c, cmd.ConversationID)

	case "send_message":
		if _, err := c.service.Send(ctx, cmd.ConversationID, c.userID, cmd.Content); err != nil {
			c.reportError(err)
		}

	case "mark_delivered":
		if _, err := c.service.MarkDelivered(ctx, cmd.MessageID, c.userID); err != nil {
			c.reportError(err)
		}

	case "mark_read":
		if _, err := c.service.MarkRead(ctx, cmd.ConversationID, c.userID, cmd.MessageIDs); err != nil {
			c.reportError(err)
		}

	case "typing":
		if err := c.service.Typing(ctx, cmd.ConversationID, c.userID); err != nil {
			c.reportError(err)
		}

	default:
		c.reportError(errors.New("unknown command type"))
	}
}

func (c *Client) reportError(err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		c.enqueue(errorEvent(apperr.PublicMessage(err)))
		return
	}
	c.enqueue(errorEvent(err.Error()))
}

// enqueue hands an event to this session's write pump without blocking the
// caller. A full buffer drops the event; the hub handles stuck sessions.
func (c *Client) enqueue(ev Event) {
	select {
	case c.send <- ev:
	default:
	}
}

// WritePump pumps events from the hub to the websocket connection and keeps
// the heartbeat going.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
