// Package queue provides the thread-safe priority queue feeding the
// engine's worker: smallest (priority, sequence) first, FIFO within a
// priority tier.
package queue

import (
	"container/heap"
	"sync"

	"github.com/dnstools/requestq/item"
)

// Queue is safe for concurrent Push from many producers and Pop from
// the single worker goroutine.
//
// A buffered signal channel (size 1) coalesces wake-ups so the worker
// can wait for new work without polling.
type Queue struct {
	mu     sync.Mutex
	items  itemHeap
	signal chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		items:  make(itemHeap, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Push inserts an item and wakes a waiting consumer.
func (q *Queue) Push(it *item.Item) {
	q.mu.Lock()
	heap.Push(&q.items, it)
	q.mu.Unlock()

	q.Wake()
}

// Pop removes and returns the item with the smallest (priority,
// sequence) key. It never blocks; ok is false when the queue is empty.
func (q *Queue) Pop() (*item.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	it := heap.Pop(&q.items).(*item.Item)
	return it, true
}

// Len returns the current pending count.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait returns the channel a consumer can select on to learn that the
// queue may have new work. Spurious wake-ups are possible; callers must
// re-check with Pop.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Wake signals a waiting consumer without enqueuing anything. Used by
// the engine on resume and shutdown. Non-blocking; the size-1 buffer
// coalesces repeated signals.
func (q *Queue) Wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// itemHeap implements heap.Interface ordered by Item.Less.
type itemHeap []*item.Item

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(*item.Item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
