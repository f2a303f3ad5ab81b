package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	myMiddleware "go-match/internal/middleware"
	"go-match/internal/validate"

	"github.com/go-chi/chi/v5"
	"github.com/neilotoole/slogt"
)

// asUser injects the identity the auth middleware would have set.
func asUser(id int, username string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), myMiddleware.UserKey, id)
			ctx = context.WithValue(ctx, myMiddleware.UsernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T, store Store, userID int) chi.Router {
	t.Helper()
	service := newTestService(t, store, &fakeEvents{})
	h := NewHandler(nil, service, validate.New(), slogt.New(t))

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(asUser(userID, fmt.Sprintf("user%d", userID)))
		r.Post("/api/conversations", h.StartConversation)
		r.Get("/api/conversations", h.ListConversations)
		r.Get("/api/conversations/{conversationID}/messages", h.GetMessages)
		r.Post("/api/conversations/{conversationID}/messages", h.SendMessage)
		r.Post("/api/conversations/{conversationID}/read", h.MarkRead)
		r.Post("/api/messages/{messageID}/delivered", h.MarkDelivered)
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.ContentLength = int64(buf.Len())
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_StartConversation(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(t, store, 1)

	rec := doJSON(t, r, http.MethodPost, "/api/conversations", map[string]any{"target_id": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var conv Conversation
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if conv.UserA != 1 || conv.UserB != 2 {
		t.Errorf("participants = (%d, %d), want (1, 2)", conv.UserA, conv.UserB)
	}
}

func TestHandler_StartConversation_Self(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(t, store, 1)

	rec := doJSON(t, r, http.MethodPost, "/api/conversations", map[string]any{"target_id": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_StartConversation_MissingTarget(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(t, store, 1)

	rec := doJSON(t, r, http.MethodPost, "/api/conversations", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_SendAndListMessages(t *testing.T) {
	store := newFakeStore()
	if _, err := store.GetOrCreateConversation(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, store, 1)

	rec := doJSON(t, r, http.MethodPost, "/api/conversations/1/messages", map[string]any{"content": "hey there"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d, body %s", rec.Code, rec.Body)
	}
	var msg Message
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if msg.SenderID != 1 || msg.Content != "hey there" {
		t.Errorf("message = %+v", msg)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/conversations/1/messages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body)
	}
	var listed struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(listed.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(listed.Messages))
	}
}

func TestHandler_SendMessage_NotParticipant(t *testing.T) {
	store := newFakeStore()
	if _, err := store.GetOrCreateConversation(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, store, 3)

	rec := doJSON(t, r, http.MethodPost, "/api/conversations/1/messages", map[string]any{"content": "let me in"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandler_MarkDelivered(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	if _, err := store.GetOrCreateConversation(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertMessage(ctx, 1, 1, "ping"); err != nil {
		t.Fatal(err)
	}

	r := newTestRouter(t, store, 2)
	rec := doJSON(t, r, http.MethodPost, "/api/messages/1/delivered", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var msg Message
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if msg.Status() != StatusDelivered {
		t.Errorf("status = %s, want %s", msg.Status(), StatusDelivered)
	}
}

func TestHandler_MarkDelivered_NotFound(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(t, store, 1)

	rec := doJSON(t, r, http.MethodPost, "/api/messages/99/delivered", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_MarkRead(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	if _, err := store.GetOrCreateConversation(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertMessage(ctx, 1, 1, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertMessage(ctx, 1, 1, "second"); err != nil {
		t.Fatal(err)
	}

	r := newTestRouter(t, store, 2)
	rec := doJSON(t, r, http.MethodPost, "/api/conversations/1/read", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(resp.Messages))
	}
	for _, m := range resp.Messages {
		if m.Status() != StatusRead {
			t.Errorf("message %d status = %s, want %s", m.ID, m.Status(), StatusRead)
		}
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, &fakeEvents{})
	h := NewHandler(nil, service, validate.New(), slogt.New(t))

	r := chi.NewRouter()
	r.Get("/api/conversations", h.ListConversations)

	rec := doJSON(t, r, http.MethodGet, "/api/conversations", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
