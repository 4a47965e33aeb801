package validation

import "github.com/chatroom/internal/model"

// ProfileValid проверяет обязательные поля профиля картой правил из IsValid.
// Пустые необязательные поля (phone, mail) пропускаются.
func ProfileValid(u model.User) bool {
	if !IsValid(KindUsername, u.Username) ||
		!IsValid(KindFirstName, u.FirstName) ||
		!IsValid(KindSurname, u.Surname) {
		return false
	}
	if u.Phone != "" && !IsValid(KindPhone, u.Phone) {
		return false
	}
	if u.Mail != "" && !IsValid(KindEmail, u.Mail) {
		return false
	}
	for _, c := range u.Contacts {
		if c.Phone != "" && !IsValid(KindPhone, c.Phone) {
			return false
		}
		if c.Mail != "" && !IsValid(KindEmail, c.Mail) {
			return false
		}
	}
	return true
}
