package taker_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"btengine/internal/book"
	"btengine/internal/taker"
	"btengine/internal/types"
)

func newTestBook() *book.L2Book {
	b := book.New()
	b.ApplyLevel(types.Ask, 100, 1.0)
	b.ApplyLevel(types.Ask, 101, 1.0)
	b.ApplyLevel(types.Ask, 102, 1.0)
	b.ApplyLevel(types.Bid, 99, 1.0)
	b.ApplyLevel(types.Bid, 98, 1.0)
	return b
}

func TestSimulateFill_WalksMultipleLevels(t *testing.T) {
	b := newTestBook()
	res := taker.SimulateFill(b, types.Buy, 1.5, 0, false)
	assert.Equal(t, 1.5, res.Filled)
	assert.InDelta(t, (100.0*1.0+101.0*0.5)/1.5, res.AvgPrice, 1e-9)

	// Book unmutated.
	assert.Equal(t, 1.0, b.QuantityAt(types.Ask, 100))
	assert.Equal(t, 1.0, b.QuantityAt(types.Ask, 101))
}

func TestConsumeFill_AppliesSelfImpact(t *testing.T) {
	b := newTestBook()
	res := taker.ConsumeFill(b, types.Buy, 1.5, 0, false)
	assert.Equal(t, 1.5, res.Filled)

	assert.Equal(t, 0.0, b.QuantityAt(types.Ask, 100)) // fully consumed, deleted
	assert.Equal(t, 0.5, b.QuantityAt(types.Ask, 101)) // partially consumed
	assert.Equal(t, 1.0, b.QuantityAt(types.Ask, 102)) // untouched
}

func TestConsumeFill_StopsAtLimitPrice(t *testing.T) {
	b := newTestBook()
	// Buy with a limit of 100.5: only the 100 level may be taken.
	res := taker.ConsumeFill(b, types.Buy, 5.0, 100.5, true)
	assert.Equal(t, 1.0, res.Filled)
	assert.InDelta(t, 100.0, res.AvgPrice, 1e-9)
	assert.Equal(t, 1.0, b.QuantityAt(types.Ask, 101)) // untouched
}

func TestConsumeFill_SellWalksBidsDescending(t *testing.T) {
	b := newTestBook()
	res := taker.ConsumeFill(b, types.Sell, 1.5, 0, false)
	assert.Equal(t, 1.5, res.Filled)
	assert.InDelta(t, (99.0*1.0+98.0*0.5)/1.5, res.AvgPrice, 1e-9)
	assert.Equal(t, 0.5, b.QuantityAt(types.Bid, 98))
}

func TestFill_InsufficientDepthReturnsNaN(t *testing.T) {
	b := book.New()
	res := taker.SimulateFill(b, types.Buy, 1.0, 0, false)
	assert.Equal(t, 0.0, res.Filled)
	assert.True(t, math.IsNaN(res.AvgPrice))
}

func TestFill_PanicsOnNonPositiveQuantity(t *testing.T) {
	b := newTestBook()
	assert.Panics(t, func() { taker.SimulateFill(b, types.Buy, 0, 0, false) })
}
