// Package redis реализует storage.RoomStore поверх Redis. Раскладка ключей:
//
//	rooms                  — set id комнат
//	room:{id}              — JSON дескриптора комнаты
//	room:{id}:members      — hash user_id -> JSON членства
//	room:{id}:bans         — set user_id
//	room:{id}:log          — hash message_id -> JSON сообщения
//	room:{id}:seq          — zset message_id, score = sequence number
//
// Порядок журнала восстанавливается из zset, так что реплей не может
// переупорядочить sequence numbers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
)

type Store struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{cli: cli}, nil
}

func (s *Store) Close() error { return s.cli.Close() }

func keyRoom(id string) string    { return "room:" + id }
func keyMembers(id string) string { return "room:" + id + ":members" }
func keyBans(id string) string    { return "room:" + id + ":bans" }
func keyLog(id string) string     { return "room:" + id + ":log" }
func keySeq(id string) string     { return "room:" + id + ":seq" }

func (s *Store) SaveRoom(ctx context.Context, room model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redisStore.SaveRoom marshal: %w", err)
	}
	_, err = s.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, "rooms", room.ID)
		p.Set(ctx, keyRoom(room.ID), data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisStore.SaveRoom: %w", err)
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, "rooms", roomID)
		p.Del(ctx, keyRoom(roomID), keyMembers(roomID), keyBans(roomID), keyLog(roomID), keySeq(roomID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisStore.DeleteRoom: %w", err)
	}
	return nil
}

func (s *Store) SaveMember(ctx context.Context, m model.Member) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redisStore.SaveMember marshal: %w", err)
	}
	if err := s.cli.HSet(ctx, keyMembers(m.RoomID), m.UserID, data).Err(); err != nil {
		return fmt.Errorf("redisStore.SaveMember: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) error {
	if err := s.cli.HDel(ctx, keyMembers(roomID), userID).Err(); err != nil {
		return fmt.Errorf("redisStore.RemoveMember: %w", err)
	}
	return nil
}

func (s *Store) SaveBan(ctx context.Context, roomID, userID string) error {
	if err := s.cli.SAdd(ctx, keyBans(roomID), userID).Err(); err != nil {
		return fmt.Errorf("redisStore.SaveBan: %w", err)
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redisStore.SaveMessage marshal: %w", err)
	}
	_, err = s.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, keyLog(m.RoomID), m.ID, data)
		p.ZAdd(ctx, keySeq(m.RoomID), redis.Z{Score: float64(m.Seq), Member: m.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisStore.SaveMessage: %w", err)
	}
	return nil
}

func (s *Store) LoadRooms(ctx context.Context) ([]storage.RoomState, error) {
	ids, err := s.cli.SMembers(ctx, "rooms").Result()
	if err != nil {
		return nil, fmt.Errorf("redisStore.LoadRooms ids: %w", err)
	}
	states := make([]storage.RoomState, 0, len(ids))
	for _, id := range ids {
		st, err := s.loadRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

func (s *Store) loadRoom(ctx context.Context, id string) (storage.RoomState, error) {
	var st storage.RoomState

	raw, err := s.cli.Get(ctx, keyRoom(id)).Result()
	if err != nil {
		return st, fmt.Errorf("redisStore.loadRoom %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &st.Room); err != nil {
		return st, fmt.Errorf("redisStore.loadRoom %s unmarshal: %w", id, err)
	}

	members, err := s.cli.HGetAll(ctx, keyMembers(id)).Result()
	if err != nil {
		return st, fmt.Errorf("redisStore.loadRoom %s members: %w", id, err)
	}
	for _, raw := range members {
		var m model.Member
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return st, fmt.Errorf("redisStore.loadRoom %s member unmarshal: %w", id, err)
		}
		st.Members = append(st.Members, m)
	}

	st.Bans, err = s.cli.SMembers(ctx, keyBans(id)).Result()
	if err != nil {
		return st, fmt.Errorf("redisStore.loadRoom %s bans: %w", id, err)
	}

	// Читаем журнал по zset: по возрастанию sequence number.
	msgIDs, err := s.cli.ZRange(ctx, keySeq(id), 0, -1).Result()
	if err != nil {
		return st, fmt.Errorf("redisStore.loadRoom %s seq: %w", id, err)
	}
	if len(msgIDs) > 0 {
		raws, err := s.cli.HMGet(ctx, keyLog(id), msgIDs...).Result()
		if err != nil {
			return st, fmt.Errorf("redisStore.loadRoom %s log: %w", id, err)
		}
		for i, r := range raws {
			rawMsg, ok := r.(string)
			if !ok {
				return st, fmt.Errorf("redisStore.loadRoom %s: log entry %s missing", id, msgIDs[i])
			}
			var m model.Message
			if err := json.Unmarshal([]byte(rawMsg), &m); err != nil {
				return st, fmt.Errorf("redisStore.loadRoom %s message unmarshal: %w", id, err)
			}
			st.Messages = append(st.Messages, m)
		}
	}
	return st, nil
}
