package ws

import (
	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/model"
)

type OpType string

const (
	OpSubscribe     OpType = "subscribe"
	OpUnsubscribe   OpType = "unsubscribe"
	OpCreateMessage OpType = "message_create"
	OpEditText      OpType = "message_edit"
	OpDeleteMessage OpType = "message_delete"
	OpTyping        OpType = "typing"
)

const (
	// frameError и frameTyping живут только на транспорте, движок их не знает.
	frameError  = "error"
	frameTyping = "typing"
	frameAck    = "ack"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Op     OpType `json:"op"`
	RoomID string `json:"room_id,omitempty"`

	// For message_create / message_edit
	Text        string             `json:"text,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`

	// For message_edit / message_delete
	MessageID string `json:"message_id,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// TypingPayload is relayed to room viewers when a user is typing.
type TypingPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// ackPayload подтверждает выполнение операции клиента.
type ackPayload struct {
	Op        OpType `json:"op"`
	RoomID    string `json:"room_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
}

// outgoingFromEvent переводит событие движка в кадр для клиента.
func outgoingFromEvent(ev event.Event) OutgoingMessage {
	return OutgoingMessage{Type: string(ev.Type), RoomID: ev.RoomID, Payload: ev.Payload}
}
