package handler

import (
	"encoding/json"
	"net/http"

	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/validation"
)

// ValidateHandler выставляет правила валидации наружу: gateway проверяет
// пользовательский ввод до того, как завести identity или создать комнату.
type ValidateHandler struct{}

func NewValidateHandler() *ValidateHandler { return &ValidateHandler{} }

type ValidateFieldRequest struct {
	Kind  validation.Kind `json:"kind"`
	Value string          `json:"value"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (h *ValidateHandler) ValidateField(w http.ResponseWriter, r *http.Request) {
	var req ValidateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: validation.IsValid(req.Kind, req.Value)})
}

func (h *ValidateHandler) ValidateProfile(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: validation.ProfileValid(u)})
}
