package model

import "time"

// Role — роль участника комнаты. Роли полностью упорядочены:
// member < moderator < admin, проверки авторизации — простое сравнение рангов.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Rank returns the position of the role in the privilege ordering.
// Unknown roles rank below member.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r has privilege greater than or equal to other.
func (r Role) AtLeast(other Role) bool { return r.Rank() >= other.Rank() }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r.Rank() > 0 }

type Room struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatorID string `json:"creator_id"`
	// SupportChannel задаётся инструментами эксплуатации, движок его только хранит.
	SupportChannel string    `json:"support_channel,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Member struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
