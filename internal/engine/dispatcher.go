package engine

import (
	"sync"

	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/logger"
)

// Handler receives room events. Handlers run synchronously in subscription
// order; a handler that panics is logged and skipped, it never blocks or
// drops delivery to the others.
type Handler func(event.Event)

// CancelFunc снимает подписку. Отмена действует до начала следующего publish,
// не ретроактивно. Повторный вызов безопасен.
type CancelFunc func()

type subscriber struct {
	id uint64
	fn Handler
}

// dispatcher is the per-room fan-out set. Publish must be called outside the
// room's exclusive section, after the mutation is durably applied.
type dispatcher struct {
	mu     sync.Mutex
	subs   []subscriber
	nextID uint64
	closed bool
}

// subscribe registers fn and returns its cancellation token.
// Returns ok=false after the room's terminal event.
func (d *dispatcher) subscribe(fn Handler) (CancelFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, false
	}
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscriber{id: id, fn: fn})
	return func() { d.cancel(id) }, true
}

func (d *dispatcher) cancel(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.subs {
		if s.id == id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// publish delivers ev to every currently-subscribed handler in subscription
// order. The subscriber set is snapshotted up front, so cancellations during
// delivery apply from the next publish.
func (d *dispatcher) publish(ev event.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	targets := make([]subscriber, len(d.subs))
	copy(targets, d.subs)
	d.mu.Unlock()

	for _, s := range targets {
		deliver(s, ev)
	}
}

func deliver(s subscriber, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("event handler panic room=%s type=%s: %v", ev.RoomID, ev.Type, r)
		}
	}()
	s.fn(ev)
}

// close cancels all subscriptions; further publish and subscribe calls are
// rejected. Called once, after chat_deleted has been delivered.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.subs = nil
	d.mu.Unlock()
}
