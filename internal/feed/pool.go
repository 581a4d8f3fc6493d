// Package feed concurrently pulls raw per-source market-data records and
// hands them to the single-threaded kernel one at a time through a
// channel-backed stream.EventStream, so I/O-bound ingestion never blocks
// on the deterministic replay loop.
package feed

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	tomb "gopkg.in/tomb.v2"

	"btengine/internal/stream"
	"btengine/internal/types"
)

// Source produces one raw market-data stream (e.g. one file, one symbol's
// WebSocket capture). Implementations decode their own record format and
// should return (nil, false) once exhausted.
type Source interface {
	Next() (types.Event, bool, error)
}

// chanStream adapts a channel of events to stream.EventStream.
type chanStream struct {
	ch  <-chan types.Event
	err func() error
}

func (s *chanStream) Next() (types.Event, bool) {
	ev, ok := <-s.ch
	return ev, ok
}

// Err returns the first error, if any, a source reported while feeding the
// stream. Only meaningful after the stream is fully drained.
func (s *chanStream) Err() error {
	return s.err()
}

// Pool reads concurrently from every Source and multiplexes their events
// onto a single channel-backed EventStream. It does not merge by time
// itself (use stream.Merge downstream if the sources aren't already
// partitioned so a single-source-per-symbol ordering suffices); it exists
// to overlap sources' I/O latency, not to reorder.
type Pool struct {
	sources []Source
}

// NewPool returns a pool that will read from sources concurrently once
// Start is called.
func NewPool(sources []Source) *Pool {
	return &Pool{sources: sources}
}

// Start launches one worker per source under a tomb, each pushing decoded
// events onto a shared buffered channel, and returns a stream.EventStream
// that drains until every source is exhausted or one errors.
func (p *Pool) Start(ctx context.Context) stream.EventStream {
	ch := make(chan types.Event, 256)
	t, gctx := tombWithContext(ctx)
	g, egctx := errgroup.WithContext(gctx)

	for _, src := range p.sources {
		src := src
		g.Go(func() error {
			for {
				select {
				case <-t.Dying():
					return nil
				case <-egctx.Done():
					return nil
				default:
				}

				ev, ok, err := src.Next()
				if err != nil {
					log.Error().Err(err).Msg("feed: source read failed")
					return err
				}
				if !ok {
					return nil
				}

				select {
				case ch <- ev:
				case <-t.Dying():
					return nil
				case <-egctx.Done():
					return nil
				}
			}
		})
	}

	go func() {
		err := g.Wait()
		close(ch)
		if err != nil {
			log.Error().Err(err).Msg("feed: pool exited with error")
		}
		t.Kill(err)
	}()

	return &chanStream{ch: ch, err: t.Err}
}

// tombWithContext pairs a tomb with a context so worker goroutines can
// select on either cancellation source.
func tombWithContext(ctx context.Context) (*tomb.Tomb, context.Context) {
	var t tomb.Tomb
	tctx, cancel := context.WithCancel(ctx)
	t.Go(func() error {
		<-t.Dying()
		cancel()
		return nil
	})
	return &t, tctx
}
