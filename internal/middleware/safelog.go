package middleware

import "strings"

// MaskUserID маскирует идентификатор пользователя в логах (в prod не светить полный id).
func MaskUserID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
