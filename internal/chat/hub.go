package chat

import (
	"context"
	"log/slog"
	"time"

	"go-match/internal/presence"
)

// StatusStore persists online/last-seen flags when a user's presence flips.
type StatusStore interface {
	SetOnline(ctx context.Context, userID int, online bool, at time.Time) error
}

type subscription struct {
	client         *Client
	conversationID int
}

// Hub is the room router. Its Run goroutine is the only thing that touches
// the client/room/session maps, so they need no locks. Outbound events go
// through the broker; the single broker subscription is also what keeps
// per-room delivery in publish order and lets multiple instances share rooms.
type Hub struct {
	logger   *slog.Logger
	broker   Broker
	presence *presence.Registry
	status   StatusStore

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription

	clients  map[*Client]bool
	rooms    map[int]map[*Client]bool // conversation id -> subscribed sessions
	sessions map[int]map[*Client]bool // user id -> live sessions
}

func NewHub(broker Broker, reg *presence.Registry, status StatusStore, logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		broker:      broker,
		presence:    reg,
		status:      status,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		clients:     make(map[*Client]bool),
		rooms:       make(map[int]map[*Client]bool),
		sessions:    make(map[int]map[*Client]bool),
	}
}

// Broadcast delivers ev to every session subscribed to the conversation's
// room, on every instance.
func (h *Hub) Broadcast(conversationID int, ev Event) {
	h.publish(envelope{Scope: scopeRoom, Target: conversationID, Event: ev})
}

// Notify delivers ev to every live session of the user, regardless of room
// subscriptions.
func (h *Hub) Notify(userID int, ev Event) {
	h.publish(envelope{Scope: scopeUser, Target: userID, Event: ev})
}

func (h *Hub) publish(env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.broker.Publish(ctx, env); err != nil {
		h.logger.Error("could not publish event", "scope", env.Scope, "target", env.Target, "error", err)
	}
}

// Run owns all hub state. It exits when ctx is cancelled or the broker
// subscription closes.
func (h *Hub) Run(ctx context.Context) {
	inbound := h.broker.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			if _, ok := h.sessions[c.userID]; !ok {
				h.sessions[c.userID] = make(map[*Client]bool)
			}
			h.sessions[c.userID][c] = true
			if h.presence.Register(c.userID, c.sessionToken) {
				h.presenceChanged(c.userID, true)
			}

		case c := <-h.unregister:
			h.drop(c)

		case sub := <-h.subscribe:
			// Idempotent: subscribing twice is harmless.
			if !h.clients[sub.client] {
				continue
			}
			if _, ok := h.rooms[sub.conversationID]; !ok {
				h.rooms[sub.conversationID] = make(map[*Client]bool)
			}
			h.rooms[sub.conversationID][sub.client] = true

		case sub := <-h.unsubscribe:
			// Idempotent: unsubscribing a non-member is harmless.
			if members, ok := h.rooms[sub.conversationID]; ok {
				delete(members, sub.client)
				if len(members) == 0 {
					delete(h.rooms, sub.conversationID)
				}
			}

		case env, ok := <-inbound:
			if !ok {
				return
			}
			h.fanOut(env)
		}
	}
}

func (h *Hub) fanOut(env envelope) {
	switch env.Scope {
	case scopeRoom:
		for c := range h.rooms[env.Target] {
			h.deliver(c, env.Event)
		}
	case scopeUser:
		for c := range h.sessions[env.Target] {
			h.deliver(c, env.Event)
		}
	case scopeAll:
		for c := range h.clients {
			h.deliver(c, env.Event)
		}
	}
}

func (h *Hub) deliver(c *Client, ev Event) {
	select {
	case c.send <- ev:
	default:
		// Slow consumer: the write pump is stuck, cut the session loose.
		h.logger.Warn("dropping slow client", "user_id", c.userID)
		h.drop(c)
	}
}

// drop removes every trace of the session. Running only on the hub goroutine
// makes the cleanup exactly-once no matter which path triggered it.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	for id, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, id)
		}
	}

	if set, ok := h.sessions[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.userID)
		}
	}

	if _, wentOffline, ok := h.presence.Remove(c.sessionToken); ok && wentOffline {
		h.presenceChanged(c.userID, false)
	}
}

// presenceChanged persists the flip and announces it to all sessions. The DB
// write runs off the hub goroutine so fan-out never waits on the store.
func (h *Hub) presenceChanged(userID int, online bool) {
	at := time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.status.SetOnline(ctx, userID, online, at); err != nil {
			h.logger.Error("could not persist presence", "user_id", userID, "error", err)
		}
	}()
	h.publish(envelope{Scope: scopeAll, Event: onlineEvent(userID, online, at)})
}

// Register hands a new connection to the hub.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister is called by the read pump's deferred cleanup.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Subscribe adds the session to a conversation room. Authorization happens
// before this is called.
func (h *Hub) Subscribe(c *Client, conversationID int) {
	h.subscribe <- subscription{client: c, conversationID: conversationID}
}

// Unsubscribe removes the session from a conversation room.
func (h *Hub) Unsubscribe(c *Client, conversationID int) {
	h.unsubscribe <- subscription{client: c, conversationID: conversationID}
}
