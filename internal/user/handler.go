package user

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go-match/internal/apperr"
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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.InvalidArg("could not decode request body"))
		return
	}
	if errs := h.val.Struct(&req); len(errs) > 0 {
		h.respond(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	u, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, apperr.InvalidArg("could not decode request body"))
		return
	}
	if errs := h.val.Struct(&req); len(errs) > 0 {
		h.respond(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, http.StatusOK, res)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	h.respond(w, http.StatusOK, users)
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
