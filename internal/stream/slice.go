package stream

import "btengine/internal/types"

// slicedStream filters an already time-ordered source to a half-open
// [startMs, endMs) window, terminating early once the window's end is
// reached.
type slicedStream struct {
	src      EventStream
	startMs  int64
	hasStart bool
	endMs    int64
	hasEnd   bool
	done     bool
}

// Slice wraps src to only yield events with When() in [startMs, endMs).
// Either bound may be omitted via hasStart/hasEnd. src must already be
// time-ordered; Slice relies on that to stop early at endMs rather than
// scanning the whole stream.
func Slice(src EventStream, startMs int64, hasStart bool, endMs int64, hasEnd bool) EventStream {
	return &slicedStream{src: src, startMs: startMs, hasStart: hasStart, endMs: endMs, hasEnd: hasEnd}
}

func (s *slicedStream) Next() (types.Event, bool) {
	if s.done {
		return nil, false
	}
	for {
		ev, ok := s.src.Next()
		if !ok {
			s.done = true
			return nil, false
		}
		t := ev.When()
		if s.hasStart && t < s.startMs {
			continue
		}
		if s.hasEnd && t >= s.endMs {
			s.done = true
			return nil, false
		}
		return ev, true
	}
}
