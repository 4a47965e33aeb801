package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValid_Email(t *testing.T) {
	req := require.New(t)

	req.True(IsValid(KindEmail, "user@example.com"))
	req.True(IsValid(KindEmail, "a.b+c@mail.server.org"))

	req.False(IsValid(KindEmail, ""))
	req.False(IsValid(KindEmail, "userexample.com"))
	req.False(IsValid(KindEmail, "user@"))
	req.False(IsValid(KindEmail, "user@example"))
	req.False(IsValid(KindEmail, "user@exa mple.com"))
	req.False(IsValid(KindEmail, "user@example.c"))
}

func TestIsValid_Phone(t *testing.T) {
	req := require.New(t)

	req.True(IsValid(KindPhone, "12345678"))
	req.True(IsValid(KindPhone, "999999999999"))

	req.False(IsValid(KindPhone, "0234567")) // leading zero
	req.False(IsValid(KindPhone, "1234567")) // too short
	req.False(IsValid(KindPhone, "1234567890123"))
	req.False(IsValid(KindPhone, "+712345678"))
	req.False(IsValid(KindPhone, "12 345 678"))
}

func TestIsValid_Username(t *testing.T) {
	req := require.New(t)

	req.True(IsValid(KindUsername, "user_1"))
	req.True(IsValid(KindUsername, "Some-Name-16chr_"))

	req.False(IsValid(KindUsername, "short"))
	req.False(IsValid(KindUsername, strings.Repeat("a", 17)))
	req.False(IsValid(KindUsername, "has space"))
	req.False(IsValid(KindUsername, "кириллица"))
}

func TestIsValid_Names(t *testing.T) {
	req := require.New(t)

	req.True(IsValid(KindFirstName, "Ян"))
	req.True(IsValid(KindFirstName, "Aleksandra"))
	req.False(IsValid(KindFirstName, "A"))
	req.False(IsValid(KindFirstName, "Ann-Marie"))

	req.True(IsValid(KindSurname, "Ё"))
	req.True(IsValid(KindSurname, strings.Repeat("я", 32)))
	req.False(IsValid(KindSurname, ""))
	req.False(IsValid(KindSurname, strings.Repeat("я", 33)))
}

func TestIsValid_ChatName(t *testing.T) {
	req := require.New(t)

	req.True(IsValid(KindChatName, "x"))
	req.True(IsValid(KindChatName, "general"))
	req.True(IsValid(KindChatName, "Отдел продаж"))
	req.True(IsValid(KindChatName, "team-42_dev"))
	req.True(IsValid(KindChatName, strings.Repeat("a", 64)))

	req.False(IsValid(KindChatName, ""))
	req.False(IsValid(KindChatName, " leading"))
	req.False(IsValid(KindChatName, "trailing "))
	req.False(IsValid(KindChatName, strings.Repeat("a", 65)))
	req.False(IsValid(KindChatName, "emoji 🙂"))
}

func TestIsValid_UnknownKind(t *testing.T) {
	require.False(t, IsValid(Kind("nonsense"), "anything"))
}
