// Package event defines the typed events the engine publishes to room
// subscribers. Payloads are immutable snapshots: they never alias live room
// state, so a slow subscriber cannot observe a state that has moved on.
package event

import (
	"time"

	"github.com/chatroom/internal/model"
)

type Type string

const (
	TypeUserConnected       Type = "user_connected"
	TypeUserLeaved          Type = "user_leaved"
	TypeUserKicked          Type = "user_kicked"
	TypeUserBanned          Type = "user_banned"
	TypeRoleGranted         Type = "role_granted"
	TypeChatRenamed         Type = "chat_renamed"
	TypeChatDeleted         Type = "chat_deleted"
	TypeMessageCreated      Type = "message_created"
	TypeTextChanged         Type = "text_changed"
	TypeAttachmentsAdded    Type = "attachments_added"
	TypeAttachmentsRemoved  Type = "attachments_removed"
	TypeMessageDeleted      Type = "message_deleted"
)

// Event is the envelope delivered to every subscriber of a room.
// Payload uses the typed structs below (no map[string]any on the hot path).
type Event struct {
	Type   Type      `json:"type"`
	RoomID string    `json:"room_id"`
	At     time.Time `json:"at"`
	Payload any      `json:"payload"`
}

// MemberPayload accompanies user_connected / user_leaved / user_kicked / user_banned.
type MemberPayload struct {
	UserID  string     `json:"user_id"`
	Role    model.Role `json:"role,omitempty"`
	ActorID string     `json:"actor_id,omitempty"` // кто кикнул/забанил; пусто при join/leave
}

// RoleGrantedPayload accompanies role_granted.
type RoleGrantedPayload struct {
	UserID  string     `json:"user_id"`
	Role    model.Role `json:"role"`
	ActorID string     `json:"actor_id"`
}

// RenamedPayload accompanies chat_renamed.
type RenamedPayload struct {
	Name    string `json:"name"`
	OldName string `json:"old_name"`
	ActorID string `json:"actor_id"`
}

// DeletedPayload accompanies chat_deleted, the terminal event of a room.
type DeletedPayload struct {
	Name    string `json:"name"`
	ActorID string `json:"actor_id"`
}

// MessagePayload accompanies message_created and message_deleted.
// Message is a deep copy taken inside the room's exclusive section.
type MessagePayload struct {
	Message model.Message `json:"message"`
}

// TextChangedPayload accompanies text_changed.
type TextChangedPayload struct {
	MessageID string     `json:"message_id"`
	Seq       uint64     `json:"seq"`
	Text      string     `json:"text"`
	EditedAt  time.Time  `json:"edited_at"`
}

// AttachmentsPayload accompanies attachments_added / attachments_removed.
// Attachments holds the full set after the mutation.
type AttachmentsPayload struct {
	MessageID   string             `json:"message_id"`
	Seq         uint64             `json:"seq"`
	Attachments []model.Attachment `json:"attachments"`
}
