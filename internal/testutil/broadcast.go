package testutil

import (
	"context"
	"sync"

	"beverage-backend/internal/realtime"
)

// Sent is one captured broadcast.
type Sent struct {
	Room         string
	Notification realtime.Notification
}

// Recorder is a realtime.Broadcaster that keeps every notification.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Broadcast(_ context.Context, room string, n realtime.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Room: room, Notification: n})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// OfType filters the captured notifications by type.
func (r *Recorder) OfType(kind string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Notification.Type == kind {
			out = append(out, s)
		}
	}
	return out
}
