package stream

import (
	"container/heap"

	"btengine/internal/types"
)

// mergeItem is one buffered-ahead event plus the stream it came from.
// streamSeq is fixed at stream-registration time, so ties between streams
// break by registration order (stable), matching each stream's own
// already-time-ordered internal sequence.
type mergeItem struct {
	event     types.Event
	streamSeq int
	src       EventStream
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	ti, tj := h[i].event.When(), h[j].event.When()
	if ti != tj {
		return ti < tj
	}
	return h[i].streamSeq < h[j].streamSeq
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergedStream is the lazy k-way merge result: at most one event buffered
// per source stream at any time.
type mergedStream struct {
	h mergeHeap
}

// Merge combines streams into a single EventStream ordered by When(), with
// ties broken by the order streams were passed in.
func Merge(streams ...EventStream) EventStream {
	m := &mergedStream{}
	for i, s := range streams {
		if ev, ok := s.Next(); ok {
			m.h = append(m.h, mergeItem{event: ev, streamSeq: i, src: s})
		}
	}
	heap.Init(&m.h)
	return m
}

func (m *mergedStream) Next() (types.Event, bool) {
	if len(m.h) == 0 {
		return nil, false
	}
	item := heap.Pop(&m.h).(mergeItem)
	if nxt, ok := item.src.Next(); ok {
		heap.Push(&m.h, mergeItem{event: nxt, streamSeq: item.streamSeq, src: item.src})
	}
	return item.event, true
}
