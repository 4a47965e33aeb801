package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatroom/internal/model"
)

func TestStore_RoundTrip(t *testing.T) {
	req := require.New(t)
	s := New()
	ctx := context.Background()

	now := time.Now().UTC()
	room := model.Room{ID: "r1", Name: "general", CreatorID: "alice", CreatedAt: now}
	req.NoError(s.SaveRoom(ctx, room))
	req.NoError(s.SaveMember(ctx, model.Member{RoomID: "r1", UserID: "alice", Role: model.RoleAdmin, JoinedAt: now}))
	req.NoError(s.SaveMember(ctx, model.Member{RoomID: "r1", UserID: "bob", Role: model.RoleMember, JoinedAt: now.Add(time.Second)}))
	req.NoError(s.SaveBan(ctx, "r1", "mallory"))

	// Сообщения пишутся не по порядку, реплей обязан отсортировать по seq.
	req.NoError(s.SaveMessage(ctx, model.Message{ID: "m2", RoomID: "r1", CreatorID: "bob", Seq: 2, Text: "second", CreatedAt: now}))
	req.NoError(s.SaveMessage(ctx, model.Message{ID: "m1", RoomID: "r1", CreatorID: "alice", Seq: 1, Text: "first", CreatedAt: now}))

	states, err := s.LoadRooms(ctx)
	req.NoError(err)
	req.Len(states, 1)

	st := states[0]
	req.Equal(room, st.Room)
	req.Len(st.Members, 2)
	req.Equal("alice", st.Members[0].UserID)
	req.Equal("bob", st.Members[1].UserID)
	req.Equal([]string{"mallory"}, st.Bans)
	req.Len(st.Messages, 2)
	req.Equal(uint64(1), st.Messages[0].Seq)
	req.Equal(uint64(2), st.Messages[1].Seq)
}

func TestStore_SaveMessageUpsert(t *testing.T) {
	req := require.New(t)
	s := New()
	ctx := context.Background()

	req.NoError(s.SaveRoom(ctx, model.Room{ID: "r1", Name: "general", CreatorID: "alice"}))
	req.NoError(s.SaveMessage(ctx, model.Message{ID: "m1", RoomID: "r1", Seq: 1, Text: "original"}))
	req.NoError(s.SaveMessage(ctx, model.Message{ID: "m1", RoomID: "r1", Seq: 1, Deleted: true}))

	states, err := s.LoadRooms(ctx)
	req.NoError(err)
	req.Len(states[0].Messages, 1)
	req.True(states[0].Messages[0].Deleted)
	req.Empty(states[0].Messages[0].Text)
}

func TestStore_DeleteRoomDropsEverything(t *testing.T) {
	req := require.New(t)
	s := New()
	ctx := context.Background()

	req.NoError(s.SaveRoom(ctx, model.Room{ID: "r1", Name: "general", CreatorID: "alice"}))
	req.NoError(s.SaveMember(ctx, model.Member{RoomID: "r1", UserID: "alice"}))
	req.NoError(s.SaveMessage(ctx, model.Message{ID: "m1", RoomID: "r1", Seq: 1}))
	req.NoError(s.DeleteRoom(ctx, "r1"))

	states, err := s.LoadRooms(ctx)
	req.NoError(err)
	req.Empty(states)

	// Записи в несуществующую комнату молча игнорируются.
	req.NoError(s.SaveMember(ctx, model.Member{RoomID: "r1", UserID: "bob"}))
	states, err = s.LoadRooms(ctx)
	req.NoError(err)
	req.Empty(states)
}
