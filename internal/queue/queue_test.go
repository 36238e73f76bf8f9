package queue

import (
	"sync"
	"testing"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID    int
	Owner string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Owner: "first"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2})

	q.Clear()

	if !q.Empty() {
		t.Errorf("expected empty queue after clear, got %d items", q.Len())
	}
}

func TestQueue_DrainPreservesOrder(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2}, testItem{ID: 3})

	items := q.Drain()

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, it := range items {
		if it.ID != i+1 {
			t.Errorf("position %d: expected ID %d, got %d", i, i+1, it.ID)
		}
	}
	if !q.Empty() {
		t.Error("expected empty queue after drain")
	}
}

func TestQueue_PushDuringDrainLandsInNextBatch(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1})

	batch := q.Drain()
	for range batch {
		q.Push(testItem{ID: 2})
	}

	if len(batch) != 1 {
		t.Errorf("expected first batch of 1, got %d", len(batch))
	}
	next := q.Drain()
	if len(next) != 1 || next[0].ID != 2 {
		t.Errorf("expected second batch [2], got %+v", next)
	}
}

func TestQueue_RemoveFunc(t *testing.T) {
	q := New[testItem]()
	q.Push(
		testItem{ID: 1, Owner: "a"},
		testItem{ID: 2, Owner: "b"},
		testItem{ID: 3, Owner: "a"},
	)

	removed := q.RemoveFunc(func(it testItem) bool { return it.Owner == "a" })

	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	left := q.Drain()
	if len(left) != 1 || left[0].ID != 2 {
		t.Errorf("expected [2] to remain, got %+v", left)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("expected 1000 items, got %d", q.Len())
	}
}

func TestQueue_ConcurrentDrain(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				q.Push(j)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				n := len(q.Drain())
				mu.Lock()
				total += n
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total += len(q.Drain())
	if total != 1000 {
		t.Errorf("expected 1000 items drained in total, got %d", total)
	}
}
