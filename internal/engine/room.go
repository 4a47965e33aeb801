package engine

import (
	"sort"
	"sync"

	"github.com/chatroom/internal/model"
	"github.com/samber/lo"
)

// room is one unit of mutual exclusion: at most one mutation per room
// proceeds at a time, rooms are independent. Reads take the RLock and copy,
// so traversals see a consistent snapshot and never a role mid-transition.
type room struct {
	mu sync.RWMutex

	info    model.Room
	members map[string]model.Member
	banned  map[string]struct{}

	// log is ordered by Seq ascending; index holds position by message id.
	// nextSeq starts at 1 and never decreases, even across deletions.
	log     []model.Message
	index   map[string]int
	nextSeq uint64

	closed bool
	subs   dispatcher
}

func newRoom(info model.Room) *room {
	return &room{
		info:    info,
		members: make(map[string]model.Member),
		banned:  make(map[string]struct{}),
		index:   make(map[string]int),
		nextSeq: 1,
	}
}

// snapshotMembers returns a copy of the member set ordered by join time
// (user id breaks ties). Caller must hold at least the read lock.
func (r *room) snapshotMembers() []model.Member {
	ms := lo.Values(r.members)
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].JoinedAt.Equal(ms[j].JoinedAt) {
			return ms[i].JoinedAt.Before(ms[j].JoinedAt)
		}
		return ms[i].UserID < ms[j].UserID
	})
	return ms
}

// snapshotMessages copies log entries with Seq > afterSeq, up to limit
// (limit <= 0 means no cap). Tombstones are included, positions are stable.
// Caller must hold at least the read lock.
func (r *room) snapshotMessages(afterSeq uint64, limit int) []model.Message {
	start := sort.Search(len(r.log), func(i int) bool { return r.log[i].Seq > afterSeq })
	n := len(r.log) - start
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]model.Message, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, r.log[i].Clone())
	}
	return out
}

// checkCreatorMembership verifies the room still holds its creator with at
// least moderator privilege. Caller must hold the lock. A violation means the
// exclusive-section discipline was broken.
func (r *room) checkCreatorMembership() bool {
	m, ok := r.members[r.info.CreatorID]
	return ok && m.Role.AtLeast(model.RoleModerator)
}
