package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/model"
)

// Join inserts userID into the room as a plain member. Joining a room you are
// already in is a no-op. Limit checks run inside the room's exclusive
// section, so the check and the insert are atomic.
func (g *Registry) Join(ctx context.Context, roomID, userID string) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotFound
	}
	if _, banned := r.banned[userID]; banned {
		r.mu.Unlock()
		return ErrAlreadyBanned
	}
	if _, ok := r.members[userID]; ok {
		r.mu.Unlock()
		return nil
	}
	if !g.limits.CanAddMember(len(r.members)) {
		r.mu.Unlock()
		return fmt.Errorf("room %s is full: %w", roomID, ErrCapacityExceeded)
	}
	if !g.acquireUserSlot(userID) {
		r.mu.Unlock()
		return fmt.Errorf("user %s holds too many rooms: %w", userID, ErrCapacityExceeded)
	}
	m := model.Member{RoomID: roomID, UserID: userID, Role: model.RoleMember, JoinedAt: time.Now().UTC()}
	if err := g.store.SaveMember(ctx, m); err != nil {
		g.releaseUserSlot(userID)
		r.mu.Unlock()
		return fmt.Errorf("registry.Join: %w", err)
	}
	r.members[userID] = m
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeUserConnected,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.MemberPayload{UserID: userID, Role: model.RoleMember},
	})
	return nil
}

// Leave removes the membership if present; leaving a room you are not in is a
// no-op, not an error. The creator cannot leave: the room invariant keeps the
// creator a member for the room's whole lifetime, deletion is the exit.
func (g *Registry) Leave(ctx context.Context, roomID, userID string) error {
	r, err := g.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotFound
	}
	if _, ok := r.members[userID]; !ok {
		r.mu.Unlock()
		return nil
	}
	if userID == r.info.CreatorID {
		r.mu.Unlock()
		return fmt.Errorf("creator cannot leave own room: %w", ErrUnauthorized)
	}
	if err := g.store.RemoveMember(ctx, roomID, userID); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry.Leave: %w", err)
	}
	delete(r.members, userID)
	r.mu.Unlock()
	g.releaseUserSlot(userID)

	r.subs.publish(event.Event{
		Type:    event.TypeUserLeaved,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.MemberPayload{UserID: userID},
	})
	return nil
}

// Kick removes targetID from the room. Actor must be moderator or admin and
// rank at least the target; the creator cannot be kicked.
func (g *Registry) Kick(ctx context.Context, actorID, roomID, targetID string) error {
	ev, err := g.removeMember(ctx, actorID, roomID, targetID, false)
	if err != nil {
		return err
	}
	ev.Type = event.TypeUserKicked
	g.publishFor(roomID, ev)
	return nil
}

// Ban removes targetID like Kick and additionally blacklists rejoin for this
// room. The ban list survives the membership (and restarts, if a store is
// configured).
func (g *Registry) Ban(ctx context.Context, actorID, roomID, targetID string) error {
	ev, err := g.removeMember(ctx, actorID, roomID, targetID, true)
	if err != nil {
		return err
	}
	ev.Type = event.TypeUserBanned
	g.publishFor(roomID, ev)
	return nil
}

// removeMember holds the shared kick/ban path: authorization, store write,
// member removal. The event is returned unpublished so the caller can stamp
// its type once the exclusive section is released.
func (g *Registry) removeMember(ctx context.Context, actorID, roomID, targetID string, ban bool) (event.Event, error) {
	r, err := g.room(roomID)
	if err != nil {
		return event.Event{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return event.Event{}, ErrNotFound
	}
	actor, ok := r.members[actorID]
	if !ok || !actor.Role.AtLeast(model.RoleModerator) {
		return event.Event{}, ErrUnauthorized
	}
	target, ok := r.members[targetID]
	if !ok {
		return event.Event{}, fmt.Errorf("user %s is not a member: %w", targetID, ErrNotFound)
	}
	if !actor.Role.AtLeast(target.Role) {
		return event.Event{}, ErrUnauthorized
	}
	if targetID == r.info.CreatorID {
		return event.Event{}, fmt.Errorf("creator cannot be removed: %w", ErrUnauthorized)
	}

	if ban {
		if err := g.store.SaveBan(ctx, roomID, targetID); err != nil {
			return event.Event{}, fmt.Errorf("registry ban: %w", err)
		}
	}
	if err := g.store.RemoveMember(ctx, roomID, targetID); err != nil {
		return event.Event{}, fmt.Errorf("registry remove member: %w", err)
	}
	if ban {
		r.banned[targetID] = struct{}{}
	}
	delete(r.members, targetID)
	g.releaseUserSlot(targetID)

	if !r.checkCreatorMembership() {
		logger.Errorf("room %s lost creator membership after removing %s", roomID, targetID)
		return event.Event{}, ErrInternal
	}
	return event.Event{
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.MemberPayload{UserID: targetID, Role: target.Role, ActorID: actorID},
	}, nil
}

// GrantRole assigns role to targetID. Only an admin may change roles, and the
// creator cannot be demoted below moderator.
func (g *Registry) GrantRole(ctx context.Context, actorID, roomID, targetID string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q: %w", role, ErrInvalidInput)
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
	if !ok || actor.Role != model.RoleAdmin {
		r.mu.Unlock()
		return ErrUnauthorized
	}
	target, ok := r.members[targetID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("user %s is not a member: %w", targetID, ErrNotFound)
	}
	if targetID == r.info.CreatorID && !role.AtLeast(model.RoleModerator) {
		r.mu.Unlock()
		return fmt.Errorf("creator keeps at least moderator: %w", ErrUnauthorized)
	}
	updated := target
	updated.Role = role
	if err := g.store.SaveMember(ctx, updated); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry.GrantRole: %w", err)
	}
	r.members[targetID] = updated
	r.mu.Unlock()

	r.subs.publish(event.Event{
		Type:    event.TypeRoleGranted,
		RoomID:  roomID,
		At:      time.Now().UTC(),
		Payload: event.RoleGrantedPayload{UserID: targetID, Role: role, ActorID: actorID},
	})
	return nil
}

func (g *Registry) publishFor(roomID string, ev event.Event) {
	if r, err := g.room(roomID); err == nil {
		r.subs.publish(ev)
	}
}
