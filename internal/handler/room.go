package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatroom/internal/engine"
	"github.com/chatroom/internal/middleware"
	"github.com/chatroom/internal/model"
)

type RoomHandler struct {
	engine *engine.Registry
}

func NewRoomHandler(eng *engine.Registry) *RoomHandler {
	return &RoomHandler{engine: eng}
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type RenameRoomRequest struct {
	Name string `json:"name"`
}

type GrantRoleRequest struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	room, err := h.engine.CreateRoom(r.Context(), userID, req.Name)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Rooms())
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	room, err := h.engine.Room(roomID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) RenameRoom(w http.ResponseWriter, r *http.Request) {
	var req RenameRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.RenameRoom(r.Context(), userID, roomID, req.Name); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.DeleteRoom(r.Context(), userID, roomID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	members, err := h.engine.Members(roomID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.Join(r.Context(), roomID, userID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.Leave(r.Context(), roomID, userID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	actorID := middleware.GetUserID(r.Context())
	if err := h.engine.Kick(r.Context(), actorID, roomID, req.UserID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) Ban(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	actorID := middleware.GetUserID(r.Context())
	if err := h.engine.Ban(r.Context(), actorID, roomID, req.UserID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RoomHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	actorID := middleware.GetUserID(r.Context())
	if err := h.engine.GrantRole(r.Context(), actorID, roomID, req.UserID, req.Role); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
