// Package repository — durable реализация storage.RoomStore поверх Postgres
// (pgx). Схема в migrations/: rooms, room_members, room_bans, messages;
// каскадные FK делают DeleteRoom одной командой.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/model"
	"github.com/chatroom/internal/storage"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) SaveRoom(ctx context.Context, room model.Room) error {
	defer logger.DeferLogDuration("roomStore.SaveRoom", time.Now())()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rooms (id, name, creator_id, support_channel, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, support_channel = EXCLUDED.support_channel`,
		room.ID, room.Name, room.CreatorID, room.SupportChannel, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomStore.SaveRoom: %w", err)
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	defer logger.DeferLogDuration("roomStore.DeleteRoom", time.Now())()
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("roomStore.DeleteRoom: %w", err)
	}
	return nil
}

func (s *Store) SaveMember(ctx context.Context, m model.Member) error {
	defer logger.DeferLogDuration("roomStore.SaveMember", time.Now())()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (room_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.RoomID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("roomStore.SaveMember: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) error {
	defer logger.DeferLogDuration("roomStore.RemoveMember", time.Now())()
	_, err := s.pool.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("roomStore.RemoveMember: %w", err)
	}
	return nil
}

func (s *Store) SaveBan(ctx context.Context, roomID, userID string) error {
	defer logger.DeferLogDuration("roomStore.SaveBan", time.Now())()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room_bans (room_id, user_id, banned_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		roomID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("roomStore.SaveBan: %w", err)
	}
	return nil
}

// LoadRooms reads every room with its members, bans and full message log.
// Messages come back ordered by seq so the engine replays them verbatim.
func (s *Store) LoadRooms(ctx context.Context) ([]storage.RoomState, error) {
	defer logger.DeferLogDuration("roomStore.LoadRooms", time.Now())()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, creator_id, COALESCE(support_channel,''), created_at
		 FROM rooms ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("roomStore.LoadRooms query: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*storage.RoomState)
	order := make([]string, 0, 16)
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatorID, &r.SupportChannel, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("roomStore.LoadRooms scan: %w", err)
		}
		byID[r.ID] = &storage.RoomState{Room: r}
		order = append(order, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomStore.LoadRooms rows: %w", err)
	}

	if err := s.loadMembers(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadBans(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, byID); err != nil {
		return nil, err
	}

	states := make([]storage.RoomState, 0, len(order))
	for _, id := range order {
		states = append(states, *byID[id])
	}
	return states, nil
}

func (s *Store) loadMembers(ctx context.Context, byID map[string]*storage.RoomState) error {
	rows, err := s.pool.Query(ctx,
		`SELECT room_id, user_id, role, joined_at FROM room_members ORDER BY joined_at, user_id`,
	)
	if err != nil {
		return fmt.Errorf("roomStore.loadMembers query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return fmt.Errorf("roomStore.loadMembers scan: %w", err)
		}
		if st, ok := byID[m.RoomID]; ok {
			st.Members = append(st.Members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("roomStore.loadMembers rows: %w", err)
	}
	return nil
}

func (s *Store) loadBans(ctx context.Context, byID map[string]*storage.RoomState) error {
	rows, err := s.pool.Query(ctx, `SELECT room_id, user_id FROM room_bans`)
	if err != nil {
		return fmt.Errorf("roomStore.loadBans query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var roomID, userID string
		if err := rows.Scan(&roomID, &userID); err != nil {
			return fmt.Errorf("roomStore.loadBans scan: %w", err)
		}
		if st, ok := byID[roomID]; ok {
			st.Bans = append(st.Bans, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("roomStore.loadBans rows: %w", err)
	}
	return nil
}
