package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
)

// SaveMessage upserts one log entry. Create, edit, attachment changes and the
// tombstone all go through here; (room_id, seq) is unique, seq never changes.
func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	defer logger.DeferLogDuration("roomStore.SaveMessage", time.Now())()
	atts, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("roomStore.SaveMessage marshal: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, room_id, creator_id, seq, text, attachments, deleted, created_at, edited_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			attachments = EXCLUDED.attachments,
			deleted = EXCLUDED.deleted,
			edited_at = EXCLUDED.edited_at`,
		m.ID, m.RoomID, m.CreatorID, m.Seq, m.Text, atts, m.Deleted, m.CreatedAt, m.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("roomStore.SaveMessage: %w", err)
	}
	return nil
}

func (s *Store) loadMessages(ctx context.Context, byID map[string]*storage.RoomState) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, creator_id, seq, text, attachments, deleted, created_at, edited_at
		 FROM messages ORDER BY room_id, seq`,
	)
	if err != nil {
		return fmt.Errorf("roomStore.loadMessages query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Message
		var atts []byte
		if err := rows.Scan(&m.ID, &m.RoomID, &m.CreatorID, &m.Seq, &m.Text, &atts, &m.Deleted, &m.CreatedAt, &m.EditedAt); err != nil {
			return fmt.Errorf("roomStore.loadMessages scan: %w", err)
		}
		if len(atts) > 0 {
			if err := json.Unmarshal(atts, &m.Attachments); err != nil {
				return fmt.Errorf("roomStore.loadMessages unmarshal: %w", err)
			}
		}
		if st, ok := byID[m.RoomID]; ok {
			st.Messages = append(st.Messages, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("roomStore.loadMessages rows: %w", err)
	}
	return nil
}
