package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/model"
)

func TestJoin_IdempotentAndLimited(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil) // MaxUserCountInChat = 3
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.NoError(g.Join(ctx, room.ID, "bob"))
	// Повторный вход уже участника — no-op без события.
	req.NoError(g.Join(ctx, room.ID, "bob"))
	req.Equal([]event.Type{event.TypeUserConnected}, col.types())

	req.NoError(g.Join(ctx, room.ID, "carol"))
	// Комната полна (alice, bob, carol).
	req.ErrorIs(g.Join(ctx, room.ID, "dave"), ErrCapacityExceeded)

	members, err := g.Members(room.ID)
	req.NoError(err)
	req.Len(members, 3)
	// Порядок по времени входа: создатель первым.
	req.Equal("alice", members[0].UserID)
}

func TestJoin_UnknownRoom(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	req.ErrorIs(g.Join(context.Background(), "no-such-room", "bob"), ErrNotFound)
}

func TestLeave(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	// Выход не-участника — no-op.
	req.NoError(g.Leave(ctx, room.ID, "stranger"))
	req.Empty(col.types())

	// Создатель не может покинуть свою комнату.
	req.ErrorIs(g.Leave(ctx, room.ID, "alice"), ErrUnauthorized)

	req.NoError(g.Leave(ctx, room.ID, "bob"))
	req.Equal([]event.Type{event.TypeUserLeaved}, col.types())

	members, err := g.Members(room.ID)
	req.NoError(err)
	req.Len(members, 1)

	// После выхода bob снова может войти.
	req.NoError(g.Join(ctx, room.ID, "bob"))
}

func TestKick_Authorization(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))
	req.NoError(g.Join(ctx, room.ID, "carol"))

	// Обычный участник не может кикать.
	req.ErrorIs(g.Kick(ctx, "bob", room.ID, "carol"), ErrUnauthorized)
	// Не-участник тем более.
	req.ErrorIs(g.Kick(ctx, "stranger", room.ID, "carol"), ErrUnauthorized)
	// Кик не-участника — NotFound.
	req.ErrorIs(g.Kick(ctx, "alice", room.ID, "stranger"), ErrNotFound)
	// Создателя кикнуть нельзя даже админу.
	req.NoError(g.GrantRole(ctx, "alice", room.ID, "bob", model.RoleAdmin))
	req.ErrorIs(g.Kick(ctx, "bob", room.ID, "alice"), ErrUnauthorized)
	// Модератор не может снять админа (ранга не хватает).
	req.NoError(g.GrantRole(ctx, "alice", room.ID, "carol", model.RoleModerator))
	req.ErrorIs(g.Kick(ctx, "carol", room.ID, "bob"), ErrUnauthorized)

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.NoError(g.Kick(ctx, "bob", room.ID, "carol"))
	req.Equal([]event.Type{event.TypeUserKicked}, col.types())
	payload := col.last().Payload.(event.MemberPayload)
	req.Equal("carol", payload.UserID)
	req.Equal("bob", payload.ActorID)

	// Кик не запрещает повторный вход.
	req.NoError(g.Join(ctx, room.ID, "carol"))
}

func TestBan_BlocksRejoin(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.NoError(g.Ban(ctx, "alice", room.ID, "bob"))
	req.Equal([]event.Type{event.TypeUserBanned}, col.types())

	req.ErrorIs(g.Join(ctx, room.ID, "bob"), ErrAlreadyBanned)

	// Бан не-участника — NotFound, даже если он уже в чёрном списке.
	req.ErrorIs(g.Ban(ctx, "alice", room.ID, "bob"), ErrNotFound)
}

func TestGrantRole(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))
	req.NoError(g.Join(ctx, room.ID, "carol"))

	// Неизвестная роль отклоняется до любых проверок.
	req.ErrorIs(g.GrantRole(ctx, "alice", room.ID, "bob", model.Role("owner")), ErrInvalidInput)
	// Только админ меняет роли.
	req.ErrorIs(g.GrantRole(ctx, "bob", room.ID, "carol", model.RoleModerator), ErrUnauthorized)
	// Назначение не-участнику — NotFound.
	req.ErrorIs(g.GrantRole(ctx, "alice", room.ID, "stranger", model.RoleModerator), ErrNotFound)
	// Создателя нельзя опустить ниже модератора.
	req.ErrorIs(g.GrantRole(ctx, "alice", room.ID, "alice", model.RoleMember), ErrUnauthorized)
	req.NoError(g.GrantRole(ctx, "alice", room.ID, "alice", model.RoleModerator))

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	// alice теперь модератор, роли менять не может.
	req.ErrorIs(g.GrantRole(ctx, "alice", room.ID, "bob", model.RoleModerator), ErrUnauthorized)
	req.Empty(col.types())
}

func TestRoleRanks(t *testing.T) {
	req := require.New(t)

	req.True(model.RoleAdmin.AtLeast(model.RoleModerator))
	req.True(model.RoleModerator.AtLeast(model.RoleMember))
	req.True(model.RoleMember.AtLeast(model.RoleMember))
	req.False(model.RoleMember.AtLeast(model.RoleModerator))
	req.False(model.RoleModerator.AtLeast(model.RoleAdmin))

	req.True(model.RoleAdmin.Valid())
	req.False(model.Role("owner").Valid())
}
