package swipe

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"go-match/internal/apperr"
	myMiddleware "go-match/internal/middleware"
	"go-match/internal/validate"
)

type Handler struct {
	service *Service
	val     *validate.Validator
	logger  *slog.Logger
}

func NewHandler(s *Service, val *validate.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: s, val: val, logger: logger}
}

// Explore handles GET /api/explore?page=&page_size=
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	candidates, err := h.service.Explore(r.Context(), userID, page, pageSize)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// Swipe handles POST /api/swipes
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		h.fail(w, apperr.ErrUnauthenticated)
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.InvalidArg("could not decode request body"))
		return
	}
	if errs := h.val.Struct(&req); len(errs) > 0 {
		h.respond(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	res, err := h.service.Swipe(r.Context(), userID, req.TargetID, Action(req.Action))
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, http.StatusCreated, res)
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
