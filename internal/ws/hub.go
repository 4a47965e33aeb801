package ws

import (
	"context"
	"sync"
	"time"

	"github.com/chatroom/internal/engine"
	"github.com/chatroom/internal/event"
	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/middleware"
)

// roomSub — одна подписка хаба на комнату движка, расшариваемая
// между всеми клиентами, смотрящими эту комнату.
type roomSub struct {
	cancel  engine.CancelFunc
	viewers map[*Client]struct{}
}

// Hub владеет WebSocket-клиентами и мостом к движку: входящие кадры
// превращаются в операции Registry, события комнат раздаются подписанным
// клиентам в порядке публикации.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
	roomSubs    map[string]*roomSub
	total       int
	maxConns    int

	engine      *engine.Registry
	writeWait   time.Duration
	sendBufSize int

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(eng *engine.Registry, maxConns, sendBufSize int, writeWait time.Duration) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	if sendBufSize <= 0 {
		sendBufSize = 256
	}
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		roomSubs:    make(map[string]*roomSub),
		maxConns:    maxConns,
		engine:      eng,
		writeWait:   writeWait,
		sendBufSize: sendBufSize,
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		done:        make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[string]struct{})
	for _, sub := range h.roomSubs {
		sub.cancel()
	}
	h.roomSubs = make(map[string]*roomSub)
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, middleware.MaskUserID(c.userID))
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.clientRooms[c] = make(map[string]struct{})
	h.total++
	h.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		c.Close()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		c.Close()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	for roomID := range h.clientRooms[c] {
		h.dropViewerLocked(roomID, c)
	}
	delete(h.clientRooms, c)
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
}

// dropViewerLocked вызывается под h.mu.
func (h *Hub) dropViewerLocked(roomID string, c *Client) {
	sub, ok := h.roomSubs[roomID]
	if !ok {
		return
	}
	delete(sub.viewers, c)
	if len(sub.viewers) == 0 {
		sub.cancel()
		delete(h.roomSubs, roomID)
	}
}

// HandleMessage dispatches incoming WebSocket frames.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Op {
	case OpSubscribe:
		h.handleSubscribe(c, msg)
	case OpUnsubscribe:
		h.handleUnsubscribe(c, msg)
	case OpCreateMessage:
		h.handleCreateMessage(ctx, c, msg)
	case OpEditText:
		h.handleEditText(ctx, c, msg)
	case OpDeleteMessage:
		h.handleDeleteMessage(ctx, c, msg)
	case OpTyping:
		h.handleTyping(c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: frameError, Payload: "unknown op"})
	}
}

func (h *Hub) handleSubscribe(c *Client, msg IncomingMessage) {
	if msg.RoomID == "" {
		h.sendToClient(c, OutgoingMessage{Type: frameError, Payload: "room_id required"})
		return
	}
	members, err := h.engine.Members(msg.RoomID)
	if err != nil {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: err.Error()})
		return
	}
	isMember := false
	for _, m := range members {
		if m.UserID == c.userID {
			isMember = true
			break
		}
	}
	if !isMember {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: "not a member"})
		return
	}

	h.mu.Lock()
	rooms, ok := h.clientRooms[c]
	if !ok {
		// Client already unregistered.
		h.mu.Unlock()
		return
	}
	if _, already := rooms[msg.RoomID]; already {
		h.mu.Unlock()
		h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpSubscribe, RoomID: msg.RoomID}})
		return
	}
	sub, ok := h.roomSubs[msg.RoomID]
	if !ok {
		roomID := msg.RoomID
		cancel, err := h.engine.Subscribe(roomID, func(ev event.Event) {
			h.relayEvent(roomID, ev)
		})
		if err != nil {
			h.mu.Unlock()
			h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: roomID, Payload: err.Error()})
			return
		}
		sub = &roomSub{cancel: cancel, viewers: make(map[*Client]struct{})}
		h.roomSubs[roomID] = sub
	}
	sub.viewers[c] = struct{}{}
	rooms[msg.RoomID] = struct{}{}
	h.mu.Unlock()

	h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpSubscribe, RoomID: msg.RoomID}})
}

func (h *Hub) handleUnsubscribe(c *Client, msg IncomingMessage) {
	if msg.RoomID == "" {
		h.sendToClient(c, OutgoingMessage{Type: frameError, Payload: "room_id required"})
		return
	}
	h.mu.Lock()
	if rooms, ok := h.clientRooms[c]; ok {
		delete(rooms, msg.RoomID)
	}
	h.dropViewerLocked(msg.RoomID, c)
	h.mu.Unlock()
	h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpUnsubscribe, RoomID: msg.RoomID}})
}

// relayEvent вызывается диспетчером движка уже после фиксации мутации.
// Порядок доставки клиенту совпадает с порядком публикации событий комнаты.
func (h *Hub) relayEvent(roomID string, ev event.Event) {
	out := outgoingFromEvent(ev)

	h.mu.RLock()
	sub, ok := h.roomSubs[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(sub.viewers))
	for c := range sub.viewers {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, out)
	}

	// Терминальное событие: движок уже закрыл подписки комнаты, убираем мост.
	if ev.Type == event.TypeChatDeleted {
		h.mu.Lock()
		if sub, ok := h.roomSubs[roomID]; ok {
			for c := range sub.viewers {
				if rooms, ok := h.clientRooms[c]; ok {
					delete(rooms, roomID)
				}
			}
			delete(h.roomSubs, roomID)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) handleCreateMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleCreateMessage", time.Now())()
	if msg.RoomID == "" || (msg.Text == "" && len(msg.Attachments) == 0) {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: "room_id and text or attachments required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.engine.CreateMessage(ctx, msg.RoomID, c.userID, msg.Text, msg.Attachments)
	if err != nil {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: err.Error()})
		return
	}
	h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpCreateMessage, RoomID: msg.RoomID, MessageID: m.ID, Seq: m.Seq}})
}

func (h *Hub) handleEditText(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.RoomID == "" || msg.MessageID == "" {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: "room_id and message_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.engine.EditText(ctx, c.userID, msg.RoomID, msg.MessageID, msg.Text); err != nil {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: err.Error()})
		return
	}
	h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpEditText, RoomID: msg.RoomID, MessageID: msg.MessageID}})
}

func (h *Hub) handleDeleteMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.RoomID == "" || msg.MessageID == "" {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: "room_id and message_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.engine.DeleteMessage(ctx, c.userID, msg.RoomID, msg.MessageID); err != nil {
		h.sendToClient(c, OutgoingMessage{Type: frameError, RoomID: msg.RoomID, Payload: err.Error()})
		return
	}
	h.sendToClient(c, OutgoingMessage{Type: frameAck, RoomID: msg.RoomID, Payload: ackPayload{Op: OpDeleteMessage, RoomID: msg.RoomID, MessageID: msg.MessageID}})
}

// handleTyping ретранслирует индикатор набора зрителям комнаты, минуя движок.
func (h *Hub) handleTyping(c *Client, msg IncomingMessage) {
	if msg.RoomID == "" {
		return
	}
	out := OutgoingMessage{Type: frameTyping, RoomID: msg.RoomID, Payload: TypingPayload{RoomID: msg.RoomID, UserID: c.userID}}

	h.mu.RLock()
	sub, ok := h.roomSubs[msg.RoomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(sub.viewers))
	for viewer := range sub.viewers {
		if viewer != c {
			targets = append(targets, viewer)
		}
	}
	h.mu.RUnlock()

	for _, viewer := range targets {
		h.sendToClient(viewer, out)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", middleware.MaskUserID(c.userID))
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
