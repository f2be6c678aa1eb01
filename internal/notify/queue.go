package notify

import (
	"sync"
	"time"
)

// Pending is one queued notification awaiting dispatch.
type Pending struct {
	Message   string
	UserID    int64
	DeviceID  string
	Timestamp time.Time
}

// Queue is an unbounded in-memory FIFO of pending notifications.
// Enqueue never blocks and always succeeds; order is preserved.
type Queue struct {
	mu    sync.Mutex
	items []Pending
}

// NewQueue creates an empty notification queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a notification for the given user and device.
func (q *Queue) Enqueue(userID int64, deviceID, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, Pending{
		Message:   message,
		UserID:    userID,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	})
}

// TakeAll removes and returns every currently-queued item in arrival order.
// Items enqueued after the call belong to the next drain.
func (q *Queue) TakeAll() []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
