package api

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/samber/lo"
)

const defaultSearchLimit = 20

// Handler exposes the management REST surface next to the websocket relay:
// account registration, room allocation, and read access to a room's
// persisted history and search index.
type Handler struct {
	auth services.IAuthService
	chat services.IChatService
	log  *slog.Logger
}

func NewHandler(auth services.IAuthService, chat services.IChatService, log *slog.Logger) *Handler {
	return &Handler{auth: auth, chat: chat, log: log}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type roomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type searchHitResponse struct {
	MessageID string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	At        time.Time `json:"at"`
}

// Register handles POST /api/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Register(req.Email, req.Password)
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		h.writeError(w, http.StatusConflict, err.Error())
	case goerrors.Is(err, errors.ErrInvalidPassword):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.log.Error("Registration failed", "email", req.Email, "error", err)
		h.writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		h.writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
	}
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, errors.ErrInvalidCredentials.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

// CreateRoom handles POST /api/rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "room name is required")
		return
	}

	record, err := h.chat.CreateRoom(req.Name)
	if err != nil {
		h.log.Error("Room creation failed", "name", req.Name, "error", err)
		h.writeError(w, http.StatusInternalServerError, "room creation failed")
		return
	}

	h.writeJSON(w, http.StatusCreated, roomResponse{
		ID:        string(record.ID),
		Name:      record.Name,
		Active:    record.Active,
		CreatedAt: record.CreatedAt,
	})
}

// ListRooms handles GET /api/rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, _ *http.Request) {
	records, err := h.chat.ListRooms()
	if err != nil {
		h.log.Error("Room listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "room listing failed")
		return
	}

	rooms := lo.Map(records, func(record repositories.RoomRecord, _ int) roomResponse {
		return roomResponse{
			ID:        string(record.ID),
			Name:      record.Name,
			Active:    record.Active,
			CreatedAt: record.CreatedAt,
		}
	})
	h.writeJSON(w, http.StatusOK, rooms)
}

// History handles GET /api/rooms/{room}/messages.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(r.PathValue("room"))
	if roomID == "" {
		h.writeError(w, http.StatusBadRequest, "room is required")
		return
	}

	messages, err := h.chat.History(roomID)
	if err != nil {
		h.log.Error("History read failed", "room", roomID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "history read failed")
		return
	}

	out := lo.Map(messages, func(msg domain.Message, _ int) messageResponse {
		return messageResponse{
			Sender:    msg.Sender,
			Content:   msg.Content,
			Type:      string(msg.Type),
			CreatedAt: msg.CreatedAt,
		}
	})
	h.writeJSON(w, http.StatusOK, out)
}

// Search handles GET /api/rooms/{room}/search?q=terms&limit=n.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(r.PathValue("room"))
	terms := r.URL.Query().Get("q")
	if roomID == "" || terms == "" {
		h.writeError(w, http.StatusBadRequest, "room and q are required")
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	hits, err := h.chat.Search(r.Context(), roomID, terms, limit)
	if err != nil {
		h.log.Error("Search failed", "room", roomID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := lo.Map(hits, func(hit repositories.SearchHit, _ int) searchHitResponse {
		return searchHitResponse{
			MessageID: hit.MessageID,
			Sender:    hit.Sender,
			Content:   hit.Content,
			At:        hit.At,
		}
	})
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Response encoding failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
