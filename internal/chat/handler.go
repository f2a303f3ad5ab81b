package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"go-match/internal/apperr"
	myMiddleware "go-match/internal/middleware"
	"go-match/internal/validate"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (dev mode)
	},
}

type Handler struct {
	hub     *Hub
	service *Service
	val     *validate.Validator
	logger  *slog.Logger
}

func NewHandler(hub *Hub, service *Service, val *validate.Validator, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, service: service, val: val, logger: logger}
}

// ServeWs upgrades an authenticated request to a websocket session. A request
// that did not pass the auth middleware is refused before the upgrade.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, h.service, conn, userID, username, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

type startConversationRequest struct {
	TargetID int `json:"target_id" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type markReadRequest struct {
	MessageIDs []int `json:"message_ids,omitempty"`
}

// StartConversation handles POST /api/conversations.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}

	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.InvalidArg("could not decode request body"))
		return
	}
	if errs := h.val.Struct(&req); len(errs) > 0 {
		h.respond(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	conv, err := h.service.StartConversation(r.Context(), userID, req.TargetID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, conv)
}

// ListConversations handles GET /api/conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}

	convs, err := h.service.ListConversations(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"conversations": convs})
}

// GetMessages handles GET /api/conversations/{conversationID}/messages.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}
	conversationID, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		h.fail(w, apperr.InvalidArg("invalid conversation id"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	msgs, err := h.service.ListMessages(r.Context(), conversationID, userID, page, pageSize)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"messages": msgs})
}

// SendMessage handles POST /api/conversations/{conversationID}/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}
	conversationID, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		h.fail(w, apperr.InvalidArg("invalid conversation id"))
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.InvalidArg("could not decode request body"))
		return
	}

	msg, err := h.service.Send(r.Context(), conversationID, userID, req.Content)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusCreated, msg)
}

// MarkDelivered handles POST /api/messages/{messageID}/delivered.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}
	messageID, err := strconv.Atoi(chi.URLParam(r, "messageID"))
	if err != nil {
		h.fail(w, apperr.InvalidArg("invalid message id"))
		return
	}

	msg, err := h.service.MarkDelivered(r.Context(), messageID, userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, msg)
}

// MarkRead handles POST /api/conversations/{conversationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}
	conversationID, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		h.fail(w, apperr.InvalidArg("invalid conversation id"))
		return
	}

	var req markReadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.fail(w, apperr.InvalidArg("could not decode request body"))
			return
		}
	}

	msgs, err := h.service.MarkRead(r.Context(), conversationID, userID, req.MessageIDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	h.respond(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("could not encode response", "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "error", err)
	h.respond(w, apperr.HTTPStatus(err), map[string]string{"error": apperr.PublicMessage(err)})
}
