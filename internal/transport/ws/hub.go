package ws

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Conn is one live subscriber stream. Identity is the interface value
// itself; the hub never generates ids for connections.
type Conn interface {
	Send(frame MessageFrame) error
	Close() error
}

// maxInflight bounds concurrent background fan-outs so that REST-triggered
// dispatches cannot pile up goroutines under connection churn.
const maxInflight = 64

// Hub maps room ids to the set of connections currently subscribed to them.
// A room entry exists only while its set is non-empty.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // roomID -> set of connections

	inflight *semaphore.Weighted
}

func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[Conn]struct{}),
		inflight: semaphore.NewWeighted(maxInflight),
	}
}

// Join registers c under roomID, creating the room entry if absent.
// Joining twice with the same connection is a no-op.
func (h *Hub) Join(roomID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[roomID] = rs
	}
	rs[c] = struct{}{}
}

// Leave removes c from roomID's set and drops the room entry once empty.
// Removing an absent connection is a no-op.
func (h *Hub) Leave(roomID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Snapshot returns a point-in-time copy of a room's subscribers, nil if the
// room has none. Iterating the copy stays safe while joins and leaves land
// concurrently.
func (h *Hub) Snapshot(roomID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(rs))
	for c := range rs {
		out = append(out, c)
	}
	return out
}

// Broadcast delivers frame to every current subscriber of roomID. A failed
// send drops only that connection; the rest of the room still receives the
// frame. Broadcasting to an empty room is a no-op.
func (h *Hub) Broadcast(roomID string, frame MessageFrame) {
	for _, c := range h.Snapshot(roomID) {
		if err := c.Send(frame); err != nil {
			slog.Debug("ws send failed, dropping connection", "room", roomID, "err", err)
			h.Leave(roomID, c)
			_ = c.Close()
		}
	}
}

// Dispatch runs Broadcast in the background; the caller does not wait for
// delivery. When maxInflight fan-outs are already running the caller blocks
// until a slot frees up instead of growing the goroutine count.
func (h *Hub) Dispatch(roomID string, frame MessageFrame) {
	if err := h.inflight.Acquire(context.Background(), 1); err != nil {
		return
	}
	go func() {
		defer h.inflight.Release(1)
		h.Broadcast(roomID, frame)
	}()
}

// Stats reports the number of active rooms and total subscribed connections.
func (h *Hub) Stats() (rooms, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, rs := range h.rooms {
		conns += len(rs)
	}
	return rooms, conns
}
