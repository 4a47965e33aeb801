package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/model"
)

func validProfile() model.User {
	return model.User{
		ID:        "u-1",
		Username:  "ivan_petrov",
		FirstName: "Иван",
		Surname:   "Петров",
		Language:  model.LangRU,
	}
}

func TestProfileValid(t *testing.T) {
	req := require.New(t)

	req.True(ProfileValid(validProfile()))

	u := validProfile()
	u.Username = "short"
	req.False(ProfileValid(u))

	u = validProfile()
	u.FirstName = "X"
	req.False(ProfileValid(u))

	// Необязательные поля проверяются только когда заполнены.
	u = validProfile()
	u.Phone = ""
	u.Mail = ""
	req.True(ProfileValid(u))

	u.Phone = "12345678"
	u.Mail = "ivan@example.com"
	req.True(ProfileValid(u))

	u.Phone = "0123"
	req.False(ProfileValid(u))

	u = validProfile()
	u.Contacts = []model.Contact{{ID: "c1", Name: "mom", Phone: "not-a-phone"}}
	req.False(ProfileValid(u))
}
