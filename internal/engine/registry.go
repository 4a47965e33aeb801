// Package engine реализует ядро чат-комнат: реестр комнат, членство с ролями,
// упорядоченный журнал сообщений и рассылку событий подписчикам. Все мутации
// комнаты выполняются под её эксклюзивной секцией; операции над разными
// комнатами идут полностью параллельно. Межкомнатных транзакций нет.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/limits"
	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
	"github.com/chatroom/internal/validation"
)

// Registry is the top-level directory of rooms and the only component that
// creates or removes a Room aggregate. Operation errors are the typed
// sentinels from errors.go; anything wrapping ErrInternal indicates a broken
// invariant and is logged loudly before being returned.
type Registry struct {
	limits limits.Limits
	store  storage.RoomStore

	mu    sync.RWMutex
	rooms map[string]*room

	// userMu guards per-user room counts (maxUserChats). Always taken after
	// a room lock, never before.
	userMu    sync.Mutex
	userRooms map[string]int
}

// New builds a Registry. store may be nil, in which case nothing is persisted
// (каждый запуск с чистого листа).
func New(lim limits.Limits, store storage.RoomStore) *Registry {
	if store == nil {
		store = noopStore{}
	}
	return &Registry{
		limits:    lim,
		store:     store,
		rooms:     make(map[string]*room),
		userRooms: make(map[string]int),
	}
}

// Restore replays persisted room state into memory. Call once at startup,
// before the registry is shared.
func (g *Registry) Restore(ctx context.Context) error {
	states, err := g.store.LoadRooms(ctx)
	if err != nil {
		return fmt.Errorf("registry.Restore: %w", err)
	}
	for _, st := range states {
		r := newRoom(st.Room)
		for _, m := range st.Members {
			r.members[m.UserID] = m
			g.userRooms[m.UserID]++
		}
		for _, uid := range st.Bans {
			r.banned[uid] = struct{}{}
		}
		for _, msg := range st.Messages {
			if len(r.log) > 0 && r.log[len(r.log)-1].Seq >= msg.Seq {
				return fmt.Errorf("registry.Restore room=%s: sequence order broken at seq=%d: %w",
					st.Room.ID, msg.Seq, ErrInternal)
			}
			r.index[msg.ID] = len(r.log)
			r.log = append(r.log, msg)
			r.nextSeq = msg.Seq + 1
		}
		g.rooms[st.Room.ID] = r
	}
	logger.Infof("registry: restored %d rooms", len(states))
	return nil
}

// CreateRoom validates name, creates the room and registers the creator as
// admin. The creator's room-count limit applies like for any join.
func (g *Registry) CreateRoom(ctx context.Context, creatorID, name string) (model.Room, error) {
	if !validation.IsValid(validation.KindChatName, name) {
		return model.Room{}, ErrInvalidName
	}
	if !g.acquireUserSlot(creatorID) {
		return model.Room{}, fmt.Errorf("user %s holds too many rooms: %w", creatorID, ErrCapacityExceeded)
	}

	now := time.Now().UTC()
	info := model.Room{
		ID:        uuid.New().String(),
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: now,
	}
	creator := model.Member{RoomID: info.ID, UserID: creatorID, Role: model.RoleAdmin, JoinedAt: now}

	if err := g.store.SaveRoom(ctx, info); err != nil {
		g.releaseUserSlot(creatorID)
		return model.Room{}, fmt.Errorf("registry.CreateRoom: %w", err)
	}
	if err := g.store.SaveMember(ctx, creator); err != nil {
		g.releaseUserSlot(creatorID)
		return model.Room{}, fmt.Errorf("registry.CreateRoom member: %w", err)
	}

	r := newRoom(info)
	r.members[creatorID] = creator

	g.mu.Lock()
	g.rooms[info.ID] = r
	g.mu.Unlock()
	return info, nil
}

// RenameRoom changes the room name. Actor must be moderator or admin.
func (g *Registry) RenameRoom(ctx context.Context, actorID, roomID, name string) error {
	if !validation.IsValid(validation.KindChatName, name) {
		return ErrInvalidName
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotFound
	}
	actor, ok := r.members[actorID]
	if !ok || !actor.Role.AtLeast(model.RoleModerator) {
		r.mu.Unlock()
		return ErrUnauthorized
	}
	oldName := r.info.Name
	updated := r.info
	updated.Name = name
	if err := g.store.SaveRoom(ctx, updated); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry.RenameRoom: %w", err)
	}
	r.info = updated
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeChatRenamed,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.RenamedPayload{Name: name, OldName: oldName, ActorID: actorID},
	})
	return nil
}

// DeleteRoom destroys the room: removes all messages, revokes all memberships
// and publishes the terminal chat_deleted event, after which every
// subscription is cancelled. Actor must be the creator or an admin.
func (g *Registry) DeleteRoom(ctx context.Context, actorID, roomID string) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotFound
	}
	actor, isMember := r.members[actorID]
	if actorID != r.info.CreatorID && (!isMember || actor.Role != model.RoleAdmin) {
		r.mu.Unlock()
		return ErrUnauthorized
	}
	if err := g.store.DeleteRoom(ctx, roomID); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry.DeleteRoom: %w", err)
	}
	name := r.info.Name
	memberIDs := make([]string, 0, len(r.members))
	for uid := range r.members {
		memberIDs = append(memberIDs, uid)
	}
	r.closed = true
	r.members = make(map[string]model.Member)
	r.log = nil
	r.index = make(map[string]int)
	r.mu.Unlock()

	g.mu.Lock()
	delete(g.rooms, roomID)
	g.mu.Unlock()
	for _, uid := range memberIDs {
		g.releaseUserSlot(uid)
	}

	r.subs.publish(event.Event{
		Type:    event.TypeChatDeleted,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.DeletedPayload{Name: name, ActorID: actorID},
	})
	r.subs.close()
	return nil
}

// Subscribe registers handler for every subsequent event of the room and
// returns its cancellation token. Cancellation takes effect before the next
// publish begins.
func (g *Registry) Subscribe(roomID string, handler Handler) (CancelFunc, error) {
	r, err := g.room(roomID)
	if err != nil {
		return nil, err
	}
	cancel, ok := r.subs.subscribe(handler)
	if !ok {
		return nil, ErrNotFound
	}
	return cancel, nil
}

// Room returns a snapshot of the room's descriptor.
func (g *Registry) Room(roomID string) (model.Room, error) {
	r, err := g.room(roomID)
	if err != nil {
		return model.Room{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return model.Room{}, ErrNotFound
	}
	return r.info, nil
}

// Rooms lists descriptors of all live rooms (no particular order).
func (g *Registry) Rooms() []model.Room {
	g.mu.RLock()
	rooms := make([]*room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		r.mu.RLock()
		if !r.closed {
			out = append(out, r.info)
		}
		r.mu.RUnlock()
	}
	return out
}

// Members returns the room's membership ordered by join time.
func (g *Registry) Members(roomID string) ([]model.Member, error) {
	r, err := g.room(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrNotFound
	}
	return r.snapshotMembers(), nil
}

// Messages traverses the log by ascending sequence number, starting after
// afterSeq. Tombstones are included so pagination cursors stay stable.
func (g *Registry) Messages(roomID string, afterSeq uint64, limit int) ([]model.Message, error) {
	r, err := g.room(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrNotFound
	}
	return r.snapshotMessages(afterSeq, limit), nil
}

func (g *Registry) room(roomID string) (*room, error) {
	g.mu.RLock()
	r, ok := g.rooms[roomID]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// acquireUserSlot reserves one of the user's maxUserChats slots.
func (g *Registry) acquireUserSlot(userID string) bool {
	g.userMu.Lock()
	defer g.userMu.Unlock()
	if !g.limits.CanJoinAnotherRoom(g.userRooms[userID]) {
		return false
	}
	g.userRooms[userID]++
	return true
}

func (g *Registry) releaseUserSlot(userID string) {
	g.userMu.Lock()
	defer g.userMu.Unlock()
	if g.userRooms[userID] <= 1 {
		delete(g.userRooms, userID)
		return
	}
	g.userRooms[userID]--
}

// noopStore is the nil-store placeholder: state lives in memory only.
type noopStore struct{}

func (noopStore) SaveRoom(context.Context, model.Room) error        { return nil }
func (noopStore) DeleteRoom(context.Context, string) error          { return nil }
func (noopStore) SaveMember(context.Context, model.Member) error    { return nil }
func (noopStore) RemoveMember(context.Context, string, string) error { return nil }
func (noopStore) SaveBan(context.Context, string, string) error     { return nil }
func (noopStore) SaveMessage(context.Context, model.Message) error  { return nil }
func (noopStore) LoadRooms(context.Context) ([]storage.RoomState, error) {
	return nil, nil
}
func (noopStore) Close() error { return nil }
