package model

import "time"

type AttachmentType string

const (
	AttachmentImage   AttachmentType = "image"
	AttachmentVideo   AttachmentType = "video"
	AttachmentSticker AttachmentType = "sticker"
)

// Valid reports whether t is one of the known attachment types.
func (t AttachmentType) Valid() bool {
	switch t {
	case AttachmentImage, AttachmentVideo, AttachmentSticker:
		return true
	}
	return false
}

// Attachment хранит только тип и непрозрачную ссылку на содержимое.
// Разрешение ссылки в контент (CDN, файловый сервис) — внешняя забота.
type Attachment struct {
	Type  AttachmentType `json:"type"`
	Value string         `json:"value"`
}

// Message is one entry of a room's append-mostly log. Seq defines the total
// order within the room independent of wall-clock skew: strictly increasing,
// starts at 1, never reused. A deleted message stays in the log as a
// tombstone (Deleted=true, text and attachments cleared) so cached positions
// and pagination cursors survive concurrent deletions.
type Message struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"room_id"`
	CreatorID   string       `json:"creator_id"`
	Seq         uint64       `json:"seq"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Deleted     bool         `json:"deleted"`
	CreatedAt   time.Time    `json:"created_at"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
}

// Clone returns a deep copy (attachments included) safe to hand to
// subscribers and readers outside the room's exclusive section.
func (m Message) Clone() Message {
	if len(m.Attachments) > 0 {
		atts := make([]Attachment, len(m.Attachments))
		copy(atts, m.Attachments)
		m.Attachments = atts
	}
	return m
}
