package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/event"
)

func TestDispatch_SubscriptionOrder(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)

	var mu sync.Mutex
	var order []string
	appendOrder := func(tag string) Handler {
		return func(event.Event) {
			mu.Lock()
			order = append(order, tag)
			mu.Unlock()
		}
	}

	for _, tag := range []string{"first", "second", "third"} {
		_, err := g.Subscribe(room.ID, appendOrder(tag))
		req.NoError(err)
	}

	_, err = g.CreateMessage(ctx, room.ID, "alice", "hi", nil)
	req.NoError(err)

	mu.Lock()
	defer mu.Unlock()
	req.Equal([]string{"first", "second", "third"}, order)
}

func TestDispatch_CancelStopsDelivery(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)

	col := &collector{}
	cancel, err := g.Subscribe(room.ID, col.handle)
	req.NoError(err)
	keep := &collector{}
	_, err = g.Subscribe(room.ID, keep.handle)
	req.NoError(err)

	_, err = g.CreateMessage(ctx, room.ID, "alice", "one", nil)
	req.NoError(err)
	cancel()
	// Повторная отмена безопасна.
	cancel()
	_, err = g.CreateMessage(ctx, room.ID, "alice", "two", nil)
	req.NoError(err)

	req.Len(col.types(), 1)
	req.Len(keep.types(), 2)
}

func TestDispatch_PanicIsolation(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)

	_, err = g.Subscribe(room.ID, func(event.Event) { panic("handler gone wrong") })
	req.NoError(err)
	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	// Паника одного подписчика не валит публикацию и не лишает остальных.
	for i := 0; i < 3; i++ {
		_, err := g.CreateMessage(ctx, room.ID, "alice", fmt.Sprintf("m%d", i), nil)
		req.NoError(err)
	}
	req.Len(col.types(), 3)
}

func TestDispatch_TerminalClosesSubscriptions(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)

	col := &collector{}
	cancel, err := g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.NoError(g.DeleteRoom(ctx, "alice", room.ID))

	types := col.types()
	req.NotEmpty(types)
	req.Equal(event.TypeChatDeleted, types[len(types)-1])

	// После терминального события отмена — no-op, паники нет.
	cancel()
}

func TestDispatch_EventsCarryRoomAndTime(t *testing.T) {
	req := require.New(t)
	g := New(testLimits(), nil)
	ctx := context.Background()

	room, err := g.CreateRoom(ctx, "alice", "room")
	req.NoError(err)
	col := &collector{}
	_, err = g.Subscribe(room.ID, col.handle)
	req.NoError(err)

	req.NoError(g.Join(ctx, room.ID, "bob"))

	ev := col.last()
	req.Equal(room.ID, ev.RoomID)
	req.False(ev.At.IsZero())
}
