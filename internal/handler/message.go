package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatroom/internal/engine"
	"github.com/chatroom/internal/middleware"
	"github.com/chatroom/internal/model"
)

type MessageHandler struct {
	engine *engine.Registry
}

func NewMessageHandler(eng *engine.Registry) *MessageHandler {
	return &MessageHandler{engine: eng}
}

type CreateMessageRequest struct {
	Text        string             `json:"text"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
}

type EditTextRequest struct {
	Text string `json:"text"`
}

type AddAttachmentsRequest struct {
	Attachments []model.Attachment `json:"attachments"`
}

type RemoveAttachmentsRequest struct {
	Values []string `json:"values"`
}

// GetMessages отдаёт журнал комнаты страницами: after_seq (по умолчанию 0) и limit.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	afterSeq := queryUint64(r, "after_seq", 0)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	messages, err := h.engine.Messages(roomID, afterSeq, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r.Context())
	msg, err := h.engine.CreateMessage(r.Context(), roomID, userID, req.Text, req.Attachments)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) EditText(w http.ResponseWriter, r *http.Request) {
	var req EditTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.EditText(r.Context(), userID, roomID, messageID, req.Text); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MessageHandler) AddAttachments(w http.ResponseWriter, r *http.Request) {
	var req AddAttachmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.AddAttachments(r.Context(), userID, roomID, messageID, req.Attachments); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MessageHandler) RemoveAttachments(w http.ResponseWriter, r *http.Request) {
	var req RemoveAttachmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.RemoveAttachments(r.Context(), userID, roomID, messageID, req.Values); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	messageID := chi.URLParam(r, "messageId")
	userID := middleware.GetUserID(r.Context())
	if err := h.engine.DeleteMessage(r.Context(), userID, roomID, messageID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
