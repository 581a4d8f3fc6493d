// Package book implements the per-symbol L2 order book: a price->quantity
// map per side with best-bid/ask and impact-VWAP queries. Resting at exactly
// one row per price keeps the levels aggregated rather than order-resolved,
// matching an exchange's public depth feed rather than a private order book.
package book

import (
	"fmt"
	"math"

	"github.com/tidwall/btree"

	"btengine/internal/types"
)

// maxImpactLevels bounds how many price levels impact_vwap walks before
// falling back to a full-depth retry. Kept small for latency; the retry
// means a book with more distinct levels than this is never falsely
// reported as illiquid.
const maxImpactLevels = 200

const epsNotional = 1e-6

// level is a single aggregated price row. Only Price participates in the
// btree ordering (see newBidTree/newAskTree) so a caller can look up or
// delete a row with a dummy level{Price: p}, mirroring the teacher's
// PriceLevel{priceLevel: x} dummy-key idiom.
type level struct {
	Price    float64
	Quantity float64
}

func newBidTree() *btree.BTreeG[level] {
	// Sorted greatest-first: Min() (and Scan order) walks best bid down.
	return btree.NewBTreeG(func(a, b level) bool { return a.Price > b.Price })
}

func newAskTree() *btree.BTreeG[level] {
	// Sorted least-first: Min() (and Scan order) walks best ask up.
	return btree.NewBTreeG(func(a, b level) bool { return a.Price < b.Price })
}

// L2Book is an in-memory, per-symbol depth book. The zero value is not
// usable; construct with New.
type L2Book struct {
	bids *btree.BTreeG[level]
	asks *btree.BTreeG[level]
}

// New returns an empty book.
func New() *L2Book {
	return &L2Book{bids: newBidTree(), asks: newAskTree()}
}

func treeFor(b *L2Book, side types.BookSide) *btree.BTreeG[level] {
	if side == types.Bid {
		return b.bids
	}
	return b.asks
}

// ApplyLevel applies a single level update. A non-positive quantity deletes
// the level (spec's documented Open Question: <=0 is deletion, not an
// error).
func (b *L2Book) ApplyLevel(side types.BookSide, price, quantity float64) {
	tr := treeFor(b, side)
	if quantity <= 0 {
		tr.Delete(level{Price: price})
		return
	}
	tr.Set(level{Price: price, Quantity: quantity})
}

// ApplyDepthUpdate applies a full depth message: all bid updates then all
// ask updates, in call order. There are no external observers mid-call, so
// this is atomic at the call granularity by construction (single-threaded
// kernel, §5).
func (b *L2Book) ApplyDepthUpdate(bidUpdates, askUpdates []types.PriceQty) {
	for _, u := range bidUpdates {
		b.ApplyLevel(types.Bid, u.Price, u.Quantity)
	}
	for _, u := range askUpdates {
		b.ApplyLevel(types.Ask, u.Price, u.Quantity)
	}
}

// BestBid returns the highest bid price with positive quantity, if any.
func (b *L2Book) BestBid() (float64, bool) {
	lvl, ok := b.bids.Min()
	return lvl.Price, ok
}

// BestAsk returns the lowest ask price with positive quantity, if any.
func (b *L2Book) BestAsk() (float64, bool) {
	lvl, ok := b.asks.Min()
	return lvl.Price, ok
}

// QuantityAt returns the resting quantity at an exact price on the given
// side, or 0 if the level is absent.
func (b *L2Book) QuantityAt(side types.BookSide, price float64) float64 {
	lvl, ok := treeFor(b, side).Get(level{Price: price})
	if !ok {
		return 0
	}
	return lvl.Quantity
}

// MidPrice returns the arithmetic mean of best bid and best ask. It returns
// ok=false whenever either side is empty (Open Question #2: we do not
// additionally guard against non-positive best prices beyond "absent").
func (b *L2Book) MidPrice() (float64, bool) {
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0, false
	}
	return (bid + ask) / 2.0, true
}

// OppositeLevels returns a best-first snapshot of the side a taker order on
// `takerSide` would walk: asks ascending for a buy, bids descending for a
// sell. Used by the taker matcher, which mutates the book via ApplyLevel as
// it consumes levels (self-impact).
func (b *L2Book) OppositeLevels(takerSide types.Side) []types.PriceQty {
	var raw []level
	if takerSide == types.Buy {
		raw = b.levelsAscendingAsks(0, true)
	} else {
		raw = b.levelsDescendingBids(0, true)
	}
	out := make([]types.PriceQty, len(raw))
	for i, lvl := range raw {
		out[i] = types.PriceQty{Price: lvl.Price, Quantity: lvl.Quantity}
	}
	return out
}

// OppositeBookSide returns the BookSide a taker order on `takerSide` walks:
// Ask for a buy, Bid for a sell.
func OppositeBookSide(takerSide types.Side) types.BookSide {
	if takerSide == types.Buy {
		return types.Ask
	}
	return types.Bid
}

// levelsAscendingAsks returns up to maxLevels ask levels in ascending price
// order; full=true requests the entire book regardless of maxLevels.
func (b *L2Book) levelsAscendingAsks(maxLevels int, full bool) []level {
	var out []level
	b.asks.Scan(func(item level) bool {
		out = append(out, item)
		return full || len(out) < maxLevels
	})
	return out
}

// levelsDescendingBids returns up to maxLevels bid levels in descending
// price order; full=true requests the entire book regardless of maxLevels.
func (b *L2Book) levelsDescendingBids(maxLevels int, full bool) []level {
	var out []level
	b.bids.Scan(func(item level) bool {
		out = append(out, item)
		return full || len(out) < maxLevels
	})
	return out
}

// ImpactVWAP walks the opposite side in price order (ascending asks for a
// buy, descending bids for a sell), consuming min(level_notional,
// remaining_notional) per level until targetNotional is reached. It returns
// NaN if the cumulative notional available falls short.
//
// The walk is capped at maxImpactLevels for latency, but is retried once
// against the full depth before giving up, so a book with more distinct
// price levels than the cap is never falsely reported as illiquid.
func (b *L2Book) ImpactVWAP(side types.Side, targetNotional float64) float64 {
	if targetNotional <= 0 {
		panic(fmt.Sprintf("book: target_notional must be > 0, got %v", targetNotional))
	}
	return b.impactVWAP(side, targetNotional, false)
}

func (b *L2Book) impactVWAP(side types.Side, targetNotional float64, full bool) float64 {
	var levels []level
	if side == types.Buy {
		levels = b.levelsAscendingAsks(maxImpactLevels, full)
	} else {
		levels = b.levelsDescendingBids(maxImpactLevels, full)
	}

	remaining := targetNotional
	totalQty := 0.0
	totalCost := 0.0

	for _, lvl := range levels {
		if remaining <= epsNotional {
			break
		}
		if lvl.Quantity <= 0 {
			continue
		}
		levelNotional := lvl.Price * lvl.Quantity
		if levelNotional <= 0 {
			continue
		}

		takeNotional := levelNotional
		if takeNotional > remaining {
			takeNotional = remaining
		}
		takeQty := takeNotional / lvl.Price

		totalCost += takeQty * lvl.Price
		totalQty += takeQty
		remaining -= takeNotional
	}

	if remaining > epsNotional || totalQty <= 0 {
		if !full {
			bookLen := b.asks.Len()
			if side == types.Sell {
				bookLen = b.bids.Len()
			}
			if bookLen > maxImpactLevels {
				return b.impactVWAP(side, targetNotional, true)
			}
		}
		return math.NaN()
	}

	return totalCost / totalQty
}
