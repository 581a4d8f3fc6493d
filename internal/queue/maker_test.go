package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btengine/internal/queue"
	"btengine/internal/types"
)

func TestOnBookQtyUpdate_OnlyDecreasesQueueAhead(t *testing.T) {
	o := queue.New("BTCUSDT", types.Buy, 100, 1.0, 5.0)

	o.OnBookQtyUpdate(10.0) // increase: ignored
	assert.Equal(t, 5.0, o.QueueAheadQty)

	o.OnBookQtyUpdate(2.0) // decrease: honored
	assert.Equal(t, 2.0, o.QueueAheadQty)

	assert.Panics(t, func() { o.OnBookQtyUpdate(-1) })
}

func TestOnTrade_WrongSymbolOrPriceIgnored(t *testing.T) {
	o := queue.New("BTCUSDT", types.Buy, 100, 1.0, 0.0)

	fill := o.OnTrade(types.Trade{Symbol: "ETHUSDT", Price: 100, Quantity: 1, IsBuyerMaker: true})
	assert.Equal(t, 0.0, fill)

	fill = o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 101, Quantity: 1, IsBuyerMaker: true})
	assert.Equal(t, 0.0, fill)
}

func TestOnTrade_WrongAggressorSideIgnored(t *testing.T) {
	buyOrder := queue.New("BTCUSDT", types.Buy, 100, 1.0, 0.0)
	// Buy aggressor (IsBuyerMaker=false) doesn't fill a resting bid.
	fill := buyOrder.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 1, IsBuyerMaker: false})
	assert.Equal(t, 0.0, fill)

	sellOrder := queue.New("BTCUSDT", types.Sell, 100, 1.0, 0.0)
	// Sell aggressor (IsBuyerMaker=true) doesn't fill a resting ask.
	fill = sellOrder.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 1, IsBuyerMaker: true})
	assert.Equal(t, 0.0, fill)
}

func TestOnTrade_ConsumesQueueAheadBeforeFilling(t *testing.T) {
	o := queue.New("BTCUSDT", types.Buy, 100, 1.0, 3.0)

	// Sell aggressor hits bids: fills a resting buy order.
	fill := o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 2.0, IsBuyerMaker: true})
	require.Equal(t, 0.0, fill)
	assert.Equal(t, 1.0, o.QueueAheadQty)
	assert.Equal(t, 0.0, o.FilledQty)

	// Next trade burns through the rest of the queue and fills us.
	fill = o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 1.5, IsBuyerMaker: true})
	assert.InDelta(t, 0.5, fill, 1e-12)
	assert.Equal(t, 0.0, o.QueueAheadQty)
	assert.InDelta(t, 0.5, o.FilledQty, 1e-12)
	assert.False(t, o.IsFilled())
}

func TestOnTrade_CapsFillAtRemainingQuantity(t *testing.T) {
	o := queue.New("BTCUSDT", types.Sell, 100, 1.0, 0.0)

	fill := o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 10.0, IsBuyerMaker: false})
	assert.Equal(t, 1.0, fill)
	assert.True(t, o.IsFilled())
	assert.Equal(t, 0.0, o.RemainingQty())

	// Already filled: further trades are no-ops.
	fill = o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 10.0, IsBuyerMaker: false})
	assert.Equal(t, 0.0, fill)
}

func TestOnTrade_PartialParticipation(t *testing.T) {
	o := queue.New("BTCUSDT", types.Sell, 100, 10.0, 0.0)
	o.TradeParticipation = 0.5

	fill := o.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 100, Quantity: 4.0, IsBuyerMaker: false})
	assert.Equal(t, 2.0, fill) // only half the tape volume counts toward us
}
