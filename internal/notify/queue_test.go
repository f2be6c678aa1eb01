package notify

import (
	"fmt"
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	q.Enqueue(1, "dev-1", "first")
	q.Enqueue(2, "dev-2", "second")
	q.Enqueue(1, "dev-1", "third")

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	items := q.TakeAll()
	if len(items) != 3 {
		t.Fatalf("TakeAll() = %d items, want 3", len(items))
	}
	for i, want := range []string{"first", "second", "third"} {
		if items[i].Message != want {
			t.Errorf("items[%d].Message = %q, want %q", i, items[i].Message, want)
		}
	}
	if items[0].UserID != 1 || items[0].DeviceID != "dev-1" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].Timestamp.IsZero() {
		t.Errorf("timestamp not set")
	}

	// The drain empties the queue; a second drain sees nothing.
	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
	if got := q.TakeAll(); got != nil {
		t.Errorf("second TakeAll() = %v, want nil", got)
	}
}

func TestQueueEnqueueAfterDrain(t *testing.T) {
	q := NewQueue()

	q.Enqueue(1, "dev-1", "first")
	q.TakeAll()
	q.Enqueue(1, "dev-1", "second")

	items := q.TakeAll()
	if len(items) != 1 || items[0].Message != "second" {
		t.Errorf("items = %+v", items)
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(int64(n), "dev", fmt.Sprintf("%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	if got := len(q.TakeAll()); got != 1000 {
		t.Errorf("TakeAll() = %d items, want 1000", got)
	}
}
