package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/limits"
	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
	"github.com/chatroom/internal/storage/memory"
)

func testLimits() limits.Limits {
	return limits.Limits{
		MaxMessageTextSize: 40,
		MaxUserCountInChat: 3,
		MaxUserChats:       2,
		MaxSocketTimeout:   10000,
	}
}

// collector накапливает события комнаты в порядке доставки.
type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) handle(ev event.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Type, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func (c *collector) last() event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func TestCreateRoom_CreatorIsAdmin(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)

	room, err := g.CreateRoom(context.Background(), "alice", "general")
	req.NoError(err)
	req.NotEmpty(room.ID)
	req.Equal("general", room.Name)
	req.Equal("alice", room.CreatorID)

	members, err := g.Members(room.ID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal("alice", members[0].UserID)
	req.Equal(model.RoleAdmin, members[0].Role)
}

func TestCreateRoom_InvalidName(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)

	for _, name := range []string{"", " spaced", "way-too-long-name-way-too-long-name-way-too-long-name-way-too-long"} {
		_, err := g.CreateRoom(context.Background(), "alice", name)
		req.ErrorIs(err, ErrInvalidInput, "name %q", name)
	}
}

func TestCreateRoom_UserRoomLimit(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil) // MaxUserChats = 2

	_, err := g.CreateRoom(context.Background(), "alice", "one")
	req.NoError(err)
	_, err = g.CreateRoom(context.Background(), "alice", "two")
	req.NoError(err)
	_, err = g.CreateRoom(context.Background(), "alice", "three")
	req.ErrorIs(err, ErrCapacityExceeded)

	// Слот освобождается удалением комнаты.
	rooms := g.Rooms()
	req.Len(rooms, 2)
	req.NoError(g.DeleteRoom(context.Background(), "alice", rooms[0].ID))
	_, err = g.CreateRoom(context.Background(), "alice", "three")
	req.NoError(err)
}

func TestRenameRoom(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "old-name")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	// Обычному участнику нельзя.
	req.ErrorIs(g.RenameRoom(ctx, "bob", room.ID, "new-name"), ErrUnauthorized)

	req.NoError(g.GrantRole(ctx, "alice", room.ID, "bob", model.RoleModerator))
	req.NoError(g.RenameRoom(ctx, "bob", room.ID, "new-name"))

	got, err := g.Room(room.ID)
	req.NoError(err)
	req.Equal("new-name", got.Name)

	last := col.last()
	req.Equal(event.TypeChatRenamed, last.Type)
	payload := last.Payload.(event.RenamedPayload)
	req.Equal("new-name", payload.Name)
	req.Equal("old-name", payload.OldName)
	req.Equal("bob", payload.ActorID)
}

func TestDeleteRoom_TerminalEventAndCleanup(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "doomed")
	req.NoError(err)
	req.NoError(g.Join(ctx, room.ID, "bob"))

	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.ErrorIs(g.DeleteRoom(ctx, "bob", room.ID), ErrUnauthorized)
	req.NoError(g.DeleteRoom(ctx, "alice", room.ID))

	types := col.types()
	req.Equal(event.TypeChatDeleted, types[len(types)-1])

	_, err = g.Room(room.ID)
	req.ErrorIs(err, ErrNotFound)
	_, err = g.Members(room.ID)
	req.ErrorIs(err, ErrNotFound)
	_, err = g.Messages(room.ID, 0, 10)
	req.ErrorIs(err, ErrNotFound)

	// Подписка на удалённую комнату невозможна.
	_, err = g.Subscribe(room.ID, col.handle)
	req.ErrorIs(err, ErrNotFound)

	// Повторное удаление: комнаты больше нет.
	req.ErrorIs(g.DeleteRoom(ctx, "alice", room.ID), ErrNotFound)
}

func TestDeleteRoom_ReleasesMemberSlots(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil) // MaxUserChats = 2
	ctx := context.Background()

	r1, err := g.CreateRoom(ctx, "alice", "one")
	req.NoError(err)
	r2, err := g.CreateRoom(ctx, "creator", "two")
	req.NoError(err)
	req.NoError(g.Join(ctx, r1.ID, "bob"))
	req.NoError(g.Join(ctx, r2.ID, "bob"))

	// bob занят в двух комнатах, третья не пускает.
	r3, err := g.CreateRoom(ctx, "carol", "three")
	req.NoError(err)
	req.ErrorIs(g.Join(ctx, r3.ID, "bob"), ErrCapacityExceeded)

	// Удаление комнаты освобождает слот каждого участника.
	req.NoError(g.DeleteRoom(ctx, "alice", r1.ID))
	req.NoError(g.Join(ctx, r3.ID, "bob"))
}

func TestRestore_ReplaysPersistedRooms(t *testing.T) {
	req := require.New(t)
	store := memory.New()
	ctx := context.Background()

	first := New(testLimits(), store)
	room, err := first.CreateRoom(ctx, "alice", "persistent")
	req.NoError(err)
	req.NoError(first.Join(ctx, room.ID, "bob"))
	req.NoError(first.Ban(ctx, "alice", room.ID, "bob"))
	m1, err := first.CreateMessage(ctx, room.ID, "alice", "first", nil)
	req.NoError(err)
	_, err = first.CreateMessage(ctx, room.ID, "alice", "second", nil)
	req.NoError(err)
	req.NoError(first.DeleteMessage(ctx, "alice", room.ID, m1.ID))

	// Новый реестр поверх того же стора: полная картина восстанавливается.
	second := New(testLimits(), store)
	req.NoError(second.Restore(ctx))

	got, err := second.Room(room.ID)
	req.NoError(err)
	req.Equal("persistent", got.Name)

	members, err := second.Members(room.ID)
	req.NoError(err)
	req.Len(members, 1)

	// Бан пережил рестарт.
	req.ErrorIs(second.Join(ctx, room.ID, "bob"), ErrAlreadyBanned)

	msgs, err := second.Messages(room.ID, 0, 10)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal(uint64(1), msgs[0].Seq)
	req.True(msgs[0].Deleted)
	req.Empty(msgs[0].Text)
	req.Equal(uint64(2), msgs[1].Seq)
	req.Equal("second", msgs[1].Text)

	// Нумерация продолжается, а не начинается заново.
	m3, err := second.CreateMessage(ctx, room.ID, "alice", "third", nil)
	req.NoError(err)
	req.Equal(uint64(3), m3.Seq)
}

// failingStore падает на всех записях; чтение пустое.
type failingStore struct{}

func (failingStore) SaveRoom(context.Context, model.Room) error         { return fmt.Errorf("disk gone") }
func (failingStore) DeleteRoom(context.Context, string) error           { return fmt.Errorf("disk gone") }
func (failingStore) SaveMember(context.Context, model.Member) error     { return fmt.Errorf("disk gone") }
func (failingStore) RemoveMember(context.Context, string, string) error { return fmt.Errorf("disk gone") }
func (failingStore) SaveBan(context.Context, string, string) error      { return fmt.Errorf("disk gone") }
func (failingStore) SaveMessage(context.Context, model.Message) error   { return fmt.Errorf("disk gone") }
func (failingStore) LoadRooms(context.Context) ([]storage.RoomState, error) {
	return nil, nil
}
func (failingStore) Close() error { return nil }

func TestCreateRoom_StoreFailureReleasesSlot(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), failingStore{}) // MaxUserChats = 2

	for i := 0; i < 5; i++ {
		_, err := g.CreateRoom(context.Background(), "alice", "room")
		req.Error(err)
		req.NotErrorIs(err, ErrCapacityExceeded)
	}
}
