package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Identity извлекает идентификатор пользователя из заголовка X-User-Id
// и кладёт его в контекст запроса. Заголовок выставляет доверенный
// gateway после своей аутентификации, поэтому здесь он не проверяется
// криптографически. Запросы без заголовка отклоняются с 401.
//
// Для браузерного WebSocket, где свои заголовки поставить нельзя,
// принимается query-параметр user_id.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if userID == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing user identity"}`))
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
