package job

import (
	"testing"

	"github.com/jsvm/jsvm/errors"
)

func TestDrainFIFOOrder(t *testing.T) {
	q := New()
	var order []int
	q.Enqueue(Job{Name: "a", Run: func() *errors.Error { order = append(order, 1); return nil }})
	q.Enqueue(Job{Name: "b", Run: func() *errors.Error { order = append(order, 2); return nil }})
	q.Enqueue(Job{Name: "c", Run: func() *errors.Error { order = append(order, 3); return nil }})

	if err := q.Drain(); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDrainReentrantEnqueueSameDrain(t *testing.T) {
	q := New()
	var order []int
	q.Enqueue(Job{Name: "a", Run: func() *errors.Error {
		order = append(order, 1)
		q.Enqueue(Job{Name: "b", Run: func() *errors.Error { order = append(order, 2); return nil }})
		return nil
	}})
	q.Enqueue(Job{Name: "c", Run: func() *errors.Error { order = append(order, 3); return nil }})

	if err := q.Drain(); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	// a enqueues b; a then c run from the original queue, then b (appended
	// during the drain) runs before Drain returns.
	want := []int{1, 3, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after Drain, got %d pending", q.Len())
	}
}
