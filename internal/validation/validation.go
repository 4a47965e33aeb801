// Package validation содержит чистые предикаты проверки пользовательского ввода.
// Правила фиксированы и не настраиваются в рантайме; несоответствие — это
// отказ входных данных, а не ошибка выполнения.
package validation

import "regexp"

// Kind selects which rule IsValid applies.
type Kind string

const (
	KindEmail     Kind = "email"
	KindPhone     Kind = "phone"
	KindUsername  Kind = "username"
	KindFirstName Kind = "firstName"
	KindSurname   Kind = "surname"
	KindChatName  Kind = "chatName"
)

var (
	// local-part + хотя бы одна метка домена + TLD от 2 символов, без пробелов и @.
	reEmail = regexp.MustCompile(`^[^\s@]+@([^\s@.,]+\.)+[^\s@.,]{2,}$`)
	// 8–12 цифр, первая 1–9; без "+7" и прочих префиксов страны.
	rePhone    = regexp.MustCompile(`^[1-9][0-9]{7,11}$`)
	reUsername = regexp.MustCompile(`^[a-zA-Z0-9_-]{6,16}$`)
	// Латиница или кириллица.
	reFirstName = regexp.MustCompile(`^[a-zA-ZА-Яа-яЁё]{2,16}$`)
	reSurname   = regexp.MustCompile(`^[a-zA-ZА-Яа-яЁё]{1,32}$`)
	reChatName  = regexp.MustCompile(`^[a-zA-ZА-Яа-яЁё0-9_-][a-zA-ZА-Яа-яЁё0-9_ -]{0,62}[a-zA-ZА-Яа-яЁё0-9_-]$|^[a-zA-ZА-Яа-яЁё0-9_-]$`)
)

// IsValid reports whether value satisfies the fixed rule for kind.
// Unknown kinds are rejected. Never panics, no side effects.
func IsValid(kind Kind, value string) bool {
	switch kind {
	case KindEmail:
		return reEmail.MatchString(value)
	case KindPhone:
		return rePhone.MatchString(value)
	case KindUsername:
		return reUsername.MatchString(value)
	case KindFirstName:
		return reFirstName.MatchString(value)
	case KindSurname:
		return reSurname.MatchString(value)
	case KindChatName:
		return reChatName.MatchString(value)
	}
	return false
}
