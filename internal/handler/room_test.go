package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/engine"
	"github.com/chatroom/internal/limits"
	"github.com/chatroom/internal/middleware"
	"github.com/chatroom/internal/model"
)

func newTestRouter() *chi.Mux {
	eng := engine.New(limits.Default(), nil)
	roomH := NewRoomHandler(eng)
	msgH := NewMessageHandler(eng)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Post("/api/rooms", roomH.CreateRoom)
		r.Get("/api/rooms/{roomId}", roomH.GetRoom)
		r.Post("/api/rooms/{roomId}/join", roomH.Join)
		r.Post("/api/rooms/{roomId}/kick", roomH.Kick)
		r.Post("/api/rooms/{roomId}/messages", msgH.CreateMessage)
		r.Get("/api/rooms/{roomId}/messages", msgH.GetMessages)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoom_HTTP(t *testing.T) {
	req := require.New(t)
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", "alice", `{"name":"general"}`)
	req.Equal(http.StatusCreated, rec.Code)

	var room model.Room
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &room))
	req.Equal("general", room.Name)
	req.Equal("alice", room.CreatorID)

	// Невалидное имя — 400.
	rec = doJSON(t, router, http.MethodPost, "/api/rooms", "alice", `{"name":" bad "}`)
	req.Equal(http.StatusBadRequest, rec.Code)

	// Без identity — 401 ещё до хендлера.
	rec = doJSON(t, router, http.MethodPost, "/api/rooms", "", `{"name":"general"}`)
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func TestEngineErrorMapping_HTTP(t *testing.T) {
	req := require.New(t)
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", "alice", `{"name":"general"}`)
	req.Equal(http.StatusCreated, rec.Code)
	var room model.Room
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &room))

	// Неизвестная комната — 404.
	rec = doJSON(t, router, http.MethodGet, "/api/rooms/nope", "alice", "")
	req.Equal(http.StatusNotFound, rec.Code)

	// Не-участник пишет — 403.
	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+room.ID+"/messages", "stranger", `{"text":"hi"}`)
	req.Equal(http.StatusForbidden, rec.Code)

	// Слишком длинный текст — 413.
	long := strings.Repeat("a", 4001)
	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+room.ID+"/messages", "alice", `{"text":"`+long+`"}`)
	req.Equal(http.StatusRequestEntityTooLarge, rec.Code)

	// Кик не-участника — 404.
	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+room.ID+"/kick", "alice", `{"user_id":"ghost"}`)
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestMessagesPagination_HTTP(t *testing.T) {
	req := require.New(t)
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/rooms", "alice", `{"name":"general"}`)
	req.Equal(http.StatusCreated, rec.Code)
	var room model.Room
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &room))

	for i := 0; i < 5; i++ {
		rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+room.ID+"/messages", "alice", `{"text":"hi"}`)
		req.Equal(http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/rooms/"+room.ID+"/messages?after_seq=2&limit=2", "alice", "")
	req.Equal(http.StatusOK, rec.Code)
	var msgs []model.Message
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &msgs))
	req.Len(msgs, 2)
	req.Equal(uint64(3), msgs[0].Seq)
	req.Equal(uint64(4), msgs[1].Seq)
}
