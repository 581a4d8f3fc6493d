package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"btengine/internal/types"
)

// record is the on-disk shape for one JSON-lines market-data file: a
// discriminator tag plus the one payload field matching it.
type record struct {
	Tag          string `json:"tag"`
	DepthUpdate  *types.DepthUpdate  `json:"depth_update,omitempty"`
	Trade        *types.Trade        `json:"trade,omitempty"`
	MarkPrice    *types.MarkPrice    `json:"mark_price,omitempty"`
	Ticker       *types.Ticker       `json:"ticker,omitempty"`
	OpenInterest *types.OpenInterest `json:"open_interest,omitempty"`
	Liquidation  *types.Liquidation  `json:"liquidation,omitempty"`
}

func (r record) toEvent() (types.Event, error) {
	switch r.Tag {
	case "depth_update":
		if r.DepthUpdate == nil {
			return nil, fmt.Errorf("feed: depth_update record missing payload")
		}
		return *r.DepthUpdate, nil
	case "trade":
		if r.Trade == nil {
			return nil, fmt.Errorf("feed: trade record missing payload")
		}
		return *r.Trade, nil
	case "mark_price":
		if r.MarkPrice == nil {
			return nil, fmt.Errorf("feed: mark_price record missing payload")
		}
		return *r.MarkPrice, nil
	case "ticker":
		if r.Ticker == nil {
			return nil, fmt.Errorf("feed: ticker record missing payload")
		}
		return *r.Ticker, nil
	case "open_interest":
		if r.OpenInterest == nil {
			return nil, fmt.Errorf("feed: open_interest record missing payload")
		}
		return *r.OpenInterest, nil
	case "liquidation":
		if r.Liquidation == nil {
			return nil, fmt.Errorf("feed: liquidation record missing payload")
		}
		return *r.Liquidation, nil
	default:
		return nil, fmt.Errorf("feed: unrecognized record tag %q", r.Tag)
	}
}

// JSONLSource is a Source backed by a newline-delimited JSON file, one
// record per line.
type JSONLSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

// OpenJSONLSource opens path for sequential JSON-lines reading.
func OpenJSONLSource(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLSource{f: f, scanner: scanner}, nil
}

// Next decodes and returns the next event. ok is false once the file is
// exhausted.
func (s *JSONLSource) Next() (types.Event, bool, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, false, fmt.Errorf("feed: read: %w", err)
		}
		return nil, false, nil
	}

	var r record
	if err := json.Unmarshal(s.scanner.Bytes(), &r); err != nil {
		return nil, false, fmt.Errorf("feed: decode: %w", err)
	}
	ev, err := r.toEvent()
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

// Close releases the underlying file handle.
func (s *JSONLSource) Close() error {
	return s.f.Close()
}

var _ io.Closer = (*JSONLSource)(nil)
