package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wavechat/chat-service/internal/domain"
	"github.com/wavechat/chat-service/internal/postgres"
	"github.com/wavechat/chat-service/internal/service"
	"github.com/wavechat/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
)

// Broadcaster is the seam between REST glue and the fan-out core: every
// successfully persisted message goes through it, persistence failures
// never do.
type Broadcaster interface {
	Dispatch(roomID string, frame ws.MessageFrame)
}

type Handler struct {
	roomSvc *service.RoomService
	msgSvc  *service.MessageService
	hub     Broadcaster
}

func NewHandler(room *service.RoomService, msg *service.MessageService, hub Broadcaster) *Handler {
	return &Handler{
		roomSvc: room,
		msgSvc:  msg,
		hub:     hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyRoomName) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
			return
		}
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, roomItem(room))
}

// DELETE /api/rooms/{id}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.roomSvc.DeleteRoom(r.Context(), id); err != nil {
		slog.Error("handler.DeleteRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	rooms, next, err := h.roomSvc.ListRooms(r.Context(), limit, cursor)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListRooms:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms)), NextCursor: next}
	for i := range rooms {
		resp.Items = append(resp.Items, roomItem(&rooms[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /api/rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, roomItem(room))
}

// GET /api/rooms/{id}/messages?limit=
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	msgs, err := h.msgSvc.History(r.Context(), roomID, limit)
	if err != nil {
		slog.Error("handler.ListMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := MessagesListResponse{Items: make([]MessageItem, 0, len(msgs))}
	for i := range msgs {
		resp.Items = append(resp.Items, messageItem(&msgs[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /api/rooms/{id}/messages
//
// Persist first, then hand the stored message to the hub. The dispatch is
// fire-and-forget: the response does not wait for fan-out.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	msg, err := h.msgSvc.Post(r.Context(), roomID, req.Sender, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrMessageTooLong) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "message too long"})
			return
		}
		slog.Error("handler.PostMessage:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	h.hub.Dispatch(roomID, ws.NewMessageFrame(msg))

	writeJSON(w, http.StatusCreated, messageItem(msg))
}

func roomItem(rm *domain.Room) RoomItem {
	return RoomItem{
		ID:          rm.ID,
		Name:        rm.Name,
		Description: rm.Description,
		CreatedAt:   rm.CreatedAt,
	}
}

func messageItem(m *domain.Message) MessageItem {
	return MessageItem{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Sender:    m.Sender,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
