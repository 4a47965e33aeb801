// Package storage описывает подключаемое хранилище состояния комнат.
// Движок авторитетен в памяти; хранилище получает каждую мутацию внутри
// эксклюзивной секции комнаты (до публикации события) и отдаёт полное
// состояние при старте. Реализации: memory.Store (тесты и -dev без внешних
// сервисов), redis.Store, repository.Store (Postgres).
package storage

import (
	"context"

	"github.com/chatroom/internal/model"
)

// RoomState is the persisted layout of one room: membership with roles, the
// ban list and the message log ordered by sequence number, tombstones
// included. A backing store must give read-after-write visibility within a
// room and must not reorder sequence numbers on replay.
type RoomState struct {
	Room     model.Room
	Members  []model.Member
	Bans     []string
	Messages []model.Message
}

type RoomStore interface {
	SaveRoom(ctx context.Context, room model.Room) error
	// DeleteRoom removes the room row and cascades members, bans and messages.
	DeleteRoom(ctx context.Context, roomID string) error

	// SaveMember inserts or updates the (room, user) membership row.
	SaveMember(ctx context.Context, m model.Member) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	SaveBan(ctx context.Context, roomID, userID string) error

	// SaveMessage inserts or updates one log entry (create, edit, attachment
	// change or tombstone — Seq never changes).
	SaveMessage(ctx context.Context, m model.Message) error

	// LoadRooms returns every persisted room for replay at boot.
	LoadRooms(ctx context.Context) ([]RoomState, error)

	Close() error
}
