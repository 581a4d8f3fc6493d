package feed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btengine/internal/feed"
	"btengine/internal/stream"
	"btengine/internal/types"
)

// sliceSource feeds a fixed list of events then reports exhaustion.
type sliceSource struct {
	events []types.Event
	i      int
}

func (s *sliceSource) Next() (types.Event, bool, error) {
	if s.i >= len(s.events) {
		return nil, false, nil
	}
	ev := s.events[s.i]
	s.i++
	return ev, true, nil
}

func TestPool_DrainsAllSources(t *testing.T) {
	src1 := &sliceSource{events: []types.Event{
		types.Trade{Symbol: "A", EventTimeMs: 1},
		types.Trade{Symbol: "A", EventTimeMs: 2},
	}}
	src2 := &sliceSource{events: []types.Event{
		types.Trade{Symbol: "B", EventTimeMs: 1},
	}}

	pool := feed.NewPool([]feed.Source{src1, src2})
	s := pool.Start(context.Background())

	got := stream.Collect(s)
	require.Len(t, got, 3)
}

func TestPool_EmptyPoolDrainsImmediately(t *testing.T) {
	pool := feed.NewPool(nil)
	s := pool.Start(context.Background())
	got := stream.Collect(s)
	assert.Empty(t, got)
}
