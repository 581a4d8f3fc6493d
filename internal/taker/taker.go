// Package taker simulates aggressive (taker) order fills against an L2
// book, either as a non-mutating preview or applying self-impact by
// consuming the levels it walks.
package taker

import (
	"fmt"
	"math"

	"btengine/internal/book"
	"btengine/internal/types"
)

const epsQty = 1e-12

// Result is a taker fill outcome. Filled is 0 and AvgPrice is NaN when the
// book could not supply any quantity (or the limit price crossed before any
// level was taken).
type Result struct {
	AvgPrice float64
	Filled   float64
}

// SimulateFill previews a taker fill against b without mutating it. side is
// the taker's own side (Buy consumes asks, Sell consumes bids). If
// limitPrice is set, the walk stops rather than crossing it, modeling an
// IOC limit order's cap.
func SimulateFill(b *book.L2Book, side types.Side, quantity float64, limitPrice float64, hasLimitPrice bool) Result {
	if quantity <= 0 {
		panic(fmt.Sprintf("taker: quantity must be > 0, got %v", quantity))
	}

	levels := b.OppositeLevels(side)
	crosses := crossesFunc(side, limitPrice, hasLimitPrice)

	remaining := quantity
	filled := 0.0
	cost := 0.0

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Quantity <= 0 {
			continue
		}
		if crosses(lvl.Price) {
			break
		}

		take := lvl.Quantity
		if take > remaining {
			take = remaining
		}
		filled += take
		cost += take * lvl.Price
		remaining -= take
	}

	if filled <= 0 {
		return Result{AvgPrice: math.NaN(), Filled: 0}
	}
	return Result{AvgPrice: cost / filled, Filled: filled}
}

// ConsumeFill is identical to SimulateFill but applies self-impact: it
// decrements (or deletes) the levels it walks on b via ApplyLevel.
func ConsumeFill(b *book.L2Book, side types.Side, quantity float64, limitPrice float64, hasLimitPrice bool) Result {
	if quantity <= 0 {
		panic(fmt.Sprintf("taker: quantity must be > 0, got %v", quantity))
	}

	levels := b.OppositeLevels(side)
	crosses := crossesFunc(side, limitPrice, hasLimitPrice)
	bookSide := book.OppositeBookSide(side)

	remaining := quantity
	filled := 0.0
	cost := 0.0

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Quantity <= 0 {
			continue
		}
		if crosses(lvl.Price) {
			break
		}

		take := lvl.Quantity
		if take > remaining {
			take = remaining
		}
		filled += take
		cost += take * lvl.Price
		remaining -= take

		newQty := lvl.Quantity - take
		if newQty <= epsQty {
			b.ApplyLevel(bookSide, lvl.Price, 0)
		} else {
			b.ApplyLevel(bookSide, lvl.Price, newQty)
		}
	}

	if filled <= 0 {
		return Result{AvgPrice: math.NaN(), Filled: 0}
	}
	return Result{AvgPrice: cost / filled, Filled: filled}
}

func crossesFunc(side types.Side, limitPrice float64, hasLimitPrice bool) func(float64) bool {
	if !hasLimitPrice {
		return func(float64) bool { return false }
	}
	if side == types.Buy {
		return func(p float64) bool { return p > limitPrice }
	}
	return func(p float64) bool { return p < limitPrice }
}
