package broker

import "container/heap"

// dueItem is one entry in a latency queue: due time plus an insertion
// sequence number so same-millisecond arrivals stay FIFO.
type dueItem[T any] struct {
	due   int64
	seq   int64
	value T
}

// dueHeap is a min-heap over dueItem ordered by (due, seq).
type dueHeap[T any] []dueItem[T]

func (h dueHeap[T]) Len() int { return len(h) }

func (h dueHeap[T]) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h dueHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *dueHeap[T]) Push(x any) {
	*h = append(*h, x.(dueItem[T]))
}

func (h *dueHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// latencyQueue defers values until a due timestamp, draining in
// (due, insertion order) order via PopDue.
type latencyQueue[T any] struct {
	h   dueHeap[T]
	seq int64
}

func newLatencyQueue[T any]() *latencyQueue[T] {
	return &latencyQueue[T]{}
}

// Push schedules value to become due at dueMs.
func (q *latencyQueue[T]) Push(dueMs int64, value T) {
	q.seq++
	heap.Push(&q.h, dueItem[T]{due: dueMs, seq: q.seq, value: value})
}

// PopDue removes and returns the earliest-due value if it is due at or
// before nowMs.
func (q *latencyQueue[T]) PopDue(nowMs int64) (T, bool) {
	var zero T
	if len(q.h) == 0 || q.h[0].due > nowMs {
		return zero, false
	}
	item := heap.Pop(&q.h).(dueItem[T])
	return item.value, true
}
