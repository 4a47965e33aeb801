package model

import "time"

// Lang — языковой тег профиля (список открытый, ядро его не интерпретирует).
type Lang string

const (
	LangRU Lang = "ru"
	LangEN Lang = "en"
	LangGE Lang = "ge"
	LangUA Lang = "ua"
	LangBY Lang = "by"
	LangKZ Lang = "kz"
)

type CookieConsent string

const (
	CookieAllow          CookieConsent = "allow"
	CookieAllowNecessary CookieConsent = "allowNecessary"
	CookieDenyAll        CookieConsent = "denyAll"
)

// KeyMappings — клиентские горячие клавиши из настроек пользователя.
type KeyMappings struct {
	SendMessage       string `json:"send_message"`
	ChangeCurrentChat string `json:"change_current_chat"`
}

type Settings struct {
	Keymap KeyMappings   `json:"keymap"`
	Cookie CookieConsent `json:"cookie,omitempty"`
}

type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Mail  string `json:"mail"`
}

// User is the profile shape supplied by the external identity provider.
// The engine trusts the ID and keys membership by it; profile strings are
// re-validated by the validation package where the application accepts them.
// Identity lifecycle (registration, sessions) stays outside this repo.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstname"`
	Surname   string    `json:"surname"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Language  Lang      `json:"language"`
	Settings  Settings  `json:"settings"`
	Contacts  []Contact `json:"contacts,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Mail      string    `json:"mail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
