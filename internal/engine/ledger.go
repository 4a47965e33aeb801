package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/model"
)

// CreateMessage appends a message to the room's log. Creator must be a
// current member; text is bounded by maxMessageTextSize. The assigned
// sequence number is strictly increasing per room, even under concurrent
// creates from multiple members.
func (g *Registry) CreateMessage(ctx context.Context, roomID, creatorID, text string, attachments []model.Attachment) (model.Message, error) {
	for _, a := range attachments {
		if !a.Type.Valid() {
			return model.Message{}, fmt.Errorf("unknown attachment type %q: %w", a.Type, ErrInvalidInput)
		}
	}
	r, err := g.room(roomID)
	if err != nil {
		return model.Message{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return model.Message{}, ErrNotFound
	}
	if _, ok := r.members[creatorID]; !ok {
		r.mu.Unlock()
		return model.Message{}, fmt.Errorf("sender %s is not a member: %w", creatorID, ErrUnauthorized)
	}
	if !g.limits.CanAppendText(text) {
		r.mu.Unlock()
		return model.Message{}, ErrMessageTooLong
	}

	seq := r.nextSeq
	if n := len(r.log); n > 0 && r.log[n-1].Seq >= seq {
		r.mu.Unlock()
		logger.Errorf("room %s: sequence collision, last=%d next=%d", roomID, r.log[len(r.log)-1].Seq, seq)
		return model.Message{}, fmt.Errorf("sequence collision in room %s: %w", roomID, ErrInternal)
	}
	m := model.Message{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		CreatorID:   creatorID,
		Seq:         seq,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	// Detach from the caller's attachments slice before the log keeps it.
	m = m.Clone()
	if err := g.store.SaveMessage(ctx, m); err != nil {
		r.mu.Unlock()
		return model.Message{}, fmt.Errorf("ledger create: %w", err)
	}
	r.index[m.ID] = len(r.log)
	r.log = append(r.log, m)
	r.nextSeq = seq + 1
	out := m.Clone()
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeMessageCreated,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.MessagePayload{Message: m.Clone()},
	})
	return out, nil
}

// EditText replaces the text of a message. Only the original creator may
// edit; tombstoned messages read as absent.
func (g *Registry) EditText(ctx context.Context, actorID, roomID, messageID, text string) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	m, err := r.liveMessage(messageID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if m.CreatorID != actorID {
		r.mu.Unlock()
		return fmt.Errorf("only the creator may edit: %w", ErrUnauthorized)
	}
	if !g.limits.CanAppendText(text) {
		r.mu.Unlock()
		return ErrMessageTooLong
	}
	now := time.Now().UTC()
	updated := m.Clone()
	updated.Text = text
	updated.EditedAt = &now
	if err := g.store.SaveMessage(ctx, updated); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("ledger edit: %w", err)
	}
	r.log[r.index[messageID]] = updated
	seq := updated.Seq
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeTextChanged,
		RoomID:  roomID,
		At:      now,
		Payload: event.TextChangedPayload{MessageID: messageID, Seq: seq, Text: text, EditedAt: now},
	})
	return nil
}

// AddAttachments appends attachments to a message. Same authorization as EditText.
func (g *Registry) AddAttachments(ctx context.Context, actorID, roomID, messageID string, attachments []model.Attachment) error {
	if len(attachments) == 0 {
		return fmt.Errorf("no attachments given: %w", ErrInvalidInput)
	}
	for _, a := range attachments {
		if !a.Type.Valid() {
			return fmt.Errorf("unknown attachment type %q: %w", a.Type, ErrInvalidInput)
		}
	}
	return g.mutateAttachments(ctx, actorID, roomID, messageID, event.TypeAttachmentsAdded,
		func(current []model.Attachment) []model.Attachment {
			return append(current, attachments...)
		})
}

// RemoveAttachments drops attachments whose value reference matches one of
// values; with no values it clears them all.
func (g *Registry) RemoveAttachments(ctx context.Context, actorID, roomID, messageID string, values []string) error {
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	return g.mutateAttachments(ctx, actorID, roomID, messageID, event.TypeAttachmentsRemoved,
		func(current []model.Attachment) []model.Attachment {
			if len(drop) == 0 {
				return nil
			}
			kept := current[:0]
			for _, a := range current {
				if _, ok := drop[a.Value]; !ok {
					kept = append(kept, a)
				}
			}
			return kept
		})
}

func (g *Registry) mutateAttachments(ctx context.Context, actorID, roomID, messageID string, evType event.Type, apply func([]model.Attachment) []model.Attachment) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	m, err := r.liveMessage(messageID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if m.CreatorID != actorID {
		r.mu.Unlock()
		return fmt.Errorf("only the creator may change attachments: %w", ErrUnauthorized)
	}
	updated := m.Clone()
	updated.Attachments = apply(updated.Attachments)
	if err := g.store.SaveMessage(ctx, updated); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("ledger attachments: %w", err)
	}
	r.log[r.index[messageID]] = updated
	snapshot := updated.Clone()
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    evType,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.AttachmentsPayload{MessageID: messageID, Seq: snapshot.Seq, Attachments: snapshot.Attachments},
	})
	return nil
}

// DeleteMessage tombstones a message: text and attachments are cleared, the
// sequence number stays as a gap marker forever (retention is external).
// Allowed for the message creator and for moderators/admins of the room.
func (g *Registry) DeleteMessage(ctx context.Context, actorID, roomID, messageID string) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	m, err := r.liveMessage(messageID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if m.CreatorID != actorID {
		actor, ok := r.members[actorID]
		if !ok || !actor.Role.AtLeast(model.RoleModerator) {
			r.mu.Unlock()
			return ErrUnauthorized
		}
	}
	tomb := m.Clone()
	tomb.Text = ""
	tomb.Attachments = nil
	tomb.Deleted = true
	if err := g.store.SaveMessage(ctx, tomb); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("ledger delete: %w", err)
	}
	r.log[r.index[messageID]] = tomb
	snapshot := tomb.Clone()
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeMessageDeleted,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.MessagePayload{Message: snapshot},
	})
	return nil
}

// liveMessage returns the non-tombstoned message by id. Caller holds the lock.
func (r *room) liveMessage(messageID string) (model.Message, error) {
	if r.closed {
		return model.Message{}, ErrNotFound
	}
	i, ok := r.index[messageID]
	if !ok {
		return model.Message{}, ErrNotFound
	}
	m := r.log[i]
	if m.Deleted {
		return model.Message{}, fmt.Errorf("message %s is deleted: %w", messageID, ErrNotFound)
	}
	return m, nil
}
