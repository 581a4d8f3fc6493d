package broker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btengine/internal/book"
	"btengine/internal/broker"
	"btengine/internal/types"
)

func newTestBook() *book.L2Book {
	b := book.New()
	b.ApplyLevel(types.Bid, 99, 1.0)
	b.ApplyLevel(types.Bid, 98, 1.0)
	b.ApplyLevel(types.Ask, 100, 1.0)
	b.ApplyLevel(types.Ask, 101, 1.0)
	return b
}

func newTestBroker(t *testing.T) *broker.SimBroker {
	br, err := broker.New(broker.DefaultConfig())
	require.NoError(t, err)
	return br
}

func TestSubmit_MarketOrderFillsTaker(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Market, Quantity: 1.5}
	require.NoError(t, br.Submit(order, bk, 0))

	require.Len(t, br.Fills, 1)
	assert.Equal(t, types.Taker, br.Fills[0].Liquidity)
	assert.InDelta(t, 1.5, br.Fills[0].Quantity, 1e-9)
}

func TestSubmit_IOCCapsAtLimitPrice(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{
		ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Limit,
		Quantity: 5.0, Price: 100.5, HasPrice: true, TimeInForce: types.IOC,
	}
	require.NoError(t, br.Submit(order, bk, 0))

	require.Len(t, br.Fills, 1)
	assert.InDelta(t, 1.0, br.Fills[0].Quantity, 1e-9) // only the 100 level is within limit
	assert.False(t, br.HasOpenOrders())                // IOC discards the remainder, no resting order
}

func TestSubmit_PostOnlyRejectedWhenCrossing(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{
		ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Limit,
		Quantity: 1.0, Price: 100, HasPrice: true, TimeInForce: types.GTC, PostOnly: true,
	}
	require.NoError(t, br.Submit(order, bk, 0))

	assert.Empty(t, br.Fills)
	assert.False(t, br.HasOpenOrders())
}

func TestSubmit_GTCCrossingRestsRemainder(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{
		ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Limit,
		Quantity: 1.5, Price: 100, HasPrice: true, TimeInForce: types.GTC,
	}
	require.NoError(t, br.Submit(order, bk, 0))

	require.Len(t, br.Fills, 1)
	assert.InDelta(t, 1.0, br.Fills[0].Quantity, 1e-9)
	assert.True(t, br.HasOpenOrders())
}

func TestMakerOrder_FillsFromTradeTape(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{
		ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Limit,
		Quantity: 1.0, Price: 99, HasPrice: true, TimeInForce: types.GTC,
	}
	require.NoError(t, br.Submit(order, bk, 0))
	require.True(t, br.HasOpenOrders())

	// Sell aggressor hits the bid at our price, burning through the
	// existing visible qty (1.0) before touching us.
	br.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 99, Quantity: 1.0, IsBuyerMaker: true}, 100)
	assert.True(t, br.HasOpenOrders()) // still resting: the trade only cleared the queue ahead

	br.OnTrade(types.Trade{Symbol: "BTCUSDT", Price: 99, Quantity: 1.0, IsBuyerMaker: true}, 100)

	require.Len(t, br.Fills, 1)
	assert.Equal(t, types.Maker, br.Fills[0].Liquidity)
	assert.False(t, br.HasOpenOrders())
}

func TestSubmitLatency_ActivatesOnlyWhenDue(t *testing.T) {
	cfg := broker.DefaultConfig()
	cfg.SubmitLatencyMs = 50
	br, err := broker.New(cfg)
	require.NoError(t, err)
	bk := newTestBook()

	order := types.Order{ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Market, Quantity: 1.0}
	require.NoError(t, br.Submit(order, bk, 0))

	br.OnTime(10)
	assert.Empty(t, br.Fills, "not yet due")

	br.OnTime(50)
	assert.Len(t, br.Fills, 1)
}

func TestCancel_BeforeSubmitActivationAtSameTick(t *testing.T) {
	cfg := broker.DefaultConfig()
	cfg.SubmitLatencyMs = 50
	br, err := broker.New(cfg)
	require.NoError(t, err)
	bk := newTestBook()

	order := types.Order{
		ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Limit,
		Quantity: 1.0, Price: 50, HasPrice: true, TimeInForce: types.GTC,
	}
	require.NoError(t, br.Submit(order, bk, 0))
	br.Cancel("o1", 50, true) // cancel latency is 0: applies now and flags the still-pending submit

	br.OnTime(50)
	assert.False(t, br.HasOpenOrders(), "canceled before activation")
}

func TestSubmit_RejectsNonPositiveQuantity(t *testing.T) {
	br := newTestBroker(t)
	bk := newTestBook()

	order := types.Order{ID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Type: types.Market, Quantity: 0}
	err := br.Submit(order, bk, 0)
	assert.ErrorIs(t, err, broker.ErrInvalidOrder)
}
