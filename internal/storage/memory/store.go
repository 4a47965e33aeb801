// Package memory реализует storage.RoomStore в памяти процесса —
// для тестов и запуска -dev без внешних сервисов.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
)

type roomRecord struct {
	room     model.Room
	members  map[string]model.Member
	bans     map[string]struct{}
	messages map[string]model.Message
}

type Store struct {
	mu    sync.RWMutex
	rooms map[string]*roomRecord
}

func New() *Store {
	return &Store{rooms: make(map[string]*roomRecord)}
}

func (s *Store) Close() error { return nil }

func (s *Store) SaveRoom(ctx context.Context, room model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[room.ID]
	if !ok {
		rec = &roomRecord{
			members:  make(map[string]model.Member),
			bans:     make(map[string]struct{}),
			messages: make(map[string]model.Message),
		}
		s.rooms[room.ID] = rec
	}
	rec.room = room
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *Store) SaveMember(ctx context.Context, m model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rooms[m.RoomID]; ok {
		rec.members[m.UserID] = m
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rooms[roomID]; ok {
		delete(rec.members, userID)
	}
	return nil
}

func (s *Store) SaveBan(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rooms[roomID]; ok {
		rec.bans[userID] = struct{}{}
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rooms[m.RoomID]; ok {
		rec.messages[m.ID] = m.Clone()
	}
	return nil
}

func (s *Store) LoadRooms(ctx context.Context) ([]storage.RoomState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]storage.RoomState, 0, len(s.rooms))
	for _, rec := range s.rooms {
		st := storage.RoomState{Room: rec.room}
		for _, m := range rec.members {
			st.Members = append(st.Members, m)
		}
		sort.Slice(st.Members, func(i, j int) bool {
			if !st.Members[i].JoinedAt.Equal(st.Members[j].JoinedAt) {
				return st.Members[i].JoinedAt.Before(st.Members[j].JoinedAt)
			}
			return st.Members[i].UserID < st.Members[j].UserID
		})
		for uid := range rec.bans {
			st.Bans = append(st.Bans, uid)
		}
		sort.Strings(st.Bans)
		for _, msg := range rec.messages {
			st.Messages = append(st.Messages, msg.Clone())
		}
		// Реплей обязан сохранять порядок sequence number.
		sort.Slice(st.Messages, func(i, j int) bool { return st.Messages[i].Seq < st.Messages[j].Seq })
		states = append(states, st)
	}
	return states, nil
}
