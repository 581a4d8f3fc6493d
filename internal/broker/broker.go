// Package broker implements a single-symbol-agnostic order simulator:
// taker fills consumed straight from book depth, maker fills progressed by
// the queue model against the trade tape, and optional submit/cancel
// latency.
package broker

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"btengine/internal/book"
	"btengine/internal/portfolio"
	"btengine/internal/queue"
	"btengine/internal/taker"
	"btengine/internal/types"
)

const priceAbsTol = 1e-9

type pendingSubmit struct {
	order types.Order
	book  *book.L2Book
}

// SimBroker is the simulated exchange an engine submits orders to.
type SimBroker struct {
	cfg Config

	Portfolio *portfolio.Portfolio
	Fills     []types.Fill

	makerOrders    map[string]*queue.Order
	pendingSubmits *latencyQueue[pendingSubmit]
	pendingCancels *latencyQueue[string]
	canceled       map[string]struct{}
}

// New validates cfg and returns a broker ready to accept orders.
func New(cfg Config) (*SimBroker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SimBroker{
		cfg:            cfg,
		Portfolio:      portfolio.New(),
		makerOrders:    make(map[string]*queue.Order),
		pendingSubmits: newLatencyQueue[pendingSubmit](),
		pendingCancels: newLatencyQueue[string](),
		canceled:       make(map[string]struct{}),
	}, nil
}

// OnTime advances broker time, activating any submits and applying any
// cancels now due. Cancels are drained before submits at the same
// timestamp: a same-tick cancel is treated as arriving first.
func (b *SimBroker) OnTime(nowMs int64) {
	for {
		orderID, ok := b.pendingCancels.PopDue(nowMs)
		if !ok {
			break
		}
		b.cancelNow(orderID)
	}

	for {
		ps, ok := b.pendingSubmits.PopDue(nowMs)
		if !ok {
			break
		}
		if _, wasCanceled := b.canceled[ps.order.ID]; wasCanceled {
			delete(b.canceled, ps.order.ID)
			continue
		}
		b.submitNow(ps.order, ps.book, nowMs)
	}
}

// Submit routes an order into the simulator. When submit latency is
// configured, the order is queued and activated later via OnTime.
func (b *SimBroker) Submit(order types.Order, bk *book.L2Book, nowMs int64) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %v", ErrInvalidOrder, order.Quantity)
	}
	if order.Type == types.Limit && !order.HasPrice {
		return fmt.Errorf("%w: limit order requires a price", ErrInvalidOrder)
	}

	if b.cfg.SubmitLatencyMs > 0 {
		b.pendingSubmits.Push(nowMs+b.cfg.SubmitLatencyMs, pendingSubmit{order: order, book: bk})
		return nil
	}
	b.submitNow(order, bk, nowMs)
	return nil
}

func (b *SimBroker) submitNow(order types.Order, bk *book.L2Book, nowMs int64) {
	if order.Type == types.Market {
		b.fillTaker(order, bk, nowMs, 0, false)
		return
	}

	limitPx := order.Price
	crosses := func() bool {
		if order.Side == types.Buy {
			ask, ok := bk.BestAsk()
			return ok && limitPx >= ask
		}
		bid, ok := bk.BestBid()
		return ok && limitPx <= bid
	}

	if order.PostOnly {
		if crosses() {
			log.Debug().Str("order_id", order.ID).Msg("post-only order rejected: would cross")
			return
		}
		b.openMaker(order, bk)
		return
	}

	if order.TimeInForce == types.IOC {
		b.fillTaker(order, bk, nowMs, limitPx, true)
		return
	}

	// GTC limit without post-only: execute the crossing portion as taker,
	// rest the remainder as maker.
	if crosses() {
		_, filledQty := b.fillTaker(order, bk, nowMs, limitPx, true)
		remaining := order.Quantity - filledQty
		if remaining > 0 {
			rest := order
			rest.Quantity = remaining
			rest.TimeInForce = types.GTC
			rest.PostOnly = false
			b.openMaker(rest, bk)
		}
		return
	}

	b.openMaker(order, bk)
}

func (b *SimBroker) openMaker(order types.Order, bk *book.L2Book) {
	var qAhead float64
	if order.Side == types.Buy {
		qAhead = bk.QuantityAt(types.Bid, order.Price)
	} else {
		qAhead = bk.QuantityAt(types.Ask, order.Price)
	}

	qAhead = qAhead*b.cfg.MakerQueueAheadFactor + b.cfg.MakerQueueAheadExtraQty

	mo := queue.New(order.Symbol, order.Side, order.Price, order.Quantity, qAhead)
	mo.TradeParticipation = b.cfg.MakerTradeParticipation
	b.makerOrders[order.ID] = mo
}

func (b *SimBroker) fillTaker(order types.Order, bk *book.L2Book, nowMs int64, limitPrice float64, hasLimitPrice bool) (avgPrice, filledQty float64) {
	res := taker.ConsumeFill(bk, order.Side, order.Quantity, limitPrice, hasLimitPrice)
	if res.Filled <= 0 || math.IsNaN(res.AvgPrice) {
		return res.AvgPrice, 0
	}

	fee := res.Filled * res.AvgPrice * b.cfg.TakerFeeFrac
	b.Portfolio.ApplyFill(order.Symbol, order.Side, res.Filled, res.AvgPrice, fee)
	b.Fills = append(b.Fills, types.Fill{
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    res.Filled,
		Price:       res.AvgPrice,
		FeeUSDT:     fee,
		EventTimeMs: nowMs,
		Liquidity:   types.Taker,
	})
	return res.AvgPrice, res.Filled
}

// OnDepthUpdate applies a depth update to bk and progresses maker queue
// positions for orders on the touched symbol and price level.
func (b *SimBroker) OnDepthUpdate(update types.DepthUpdate, bk *book.L2Book) {
	bk.ApplyDepthUpdate(update.BidUpdates, update.AskUpdates)

	for orderID, mo := range b.makerOrders {
		if mo.Symbol != update.Symbol {
			continue
		}
		touched := update.AskUpdates
		if mo.Side == types.Buy {
			touched = update.BidUpdates
		}
		for _, u := range touched {
			if math.Abs(u.Price-mo.Price) <= priceAbsTol {
				mo.OnBookQtyUpdate(u.Quantity)
				break
			}
		}

		if mo.IsFilled() {
			delete(b.makerOrders, orderID)
		}
	}
}

// OnTrade progresses maker queue orders against a public trade print,
// emitting a maker Fill for any order it fills.
func (b *SimBroker) OnTrade(trade types.Trade, nowMs int64) {
	for orderID, mo := range b.makerOrders {
		fillQty := mo.OnTrade(trade)
		if fillQty <= 0 {
			continue
		}

		fee := fillQty * trade.Price * b.cfg.MakerFeeFrac
		b.Portfolio.ApplyFill(mo.Symbol, mo.Side, fillQty, trade.Price, fee)
		b.Fills = append(b.Fills, types.Fill{
			OrderID:     orderID,
			Symbol:      mo.Symbol,
			Side:        mo.Side,
			Quantity:    fillQty,
			Price:       trade.Price,
			FeeUSDT:     fee,
			EventTimeMs: nowMs,
			Liquidity:   types.Maker,
		})

		if mo.IsFilled() {
			delete(b.makerOrders, orderID)
		}
	}
}

// Cancel cancels an open maker order, or an order still awaiting submit
// activation. With cancel latency configured, the cancel is deferred to a
// later OnTime.
func (b *SimBroker) Cancel(orderID string, nowMs int64, hasNow bool) {
	if b.cfg.CancelLatencyMs > 0 && hasNow {
		b.pendingCancels.Push(nowMs+b.cfg.CancelLatencyMs, orderID)
		return
	}
	b.cancelNow(orderID)
}

func (b *SimBroker) cancelNow(orderID string) {
	if _, wasOpen := b.makerOrders[orderID]; wasOpen {
		delete(b.makerOrders, orderID)
		return
	}
	// Not resting yet: it may still be in pendingSubmits, awaiting
	// activation. Mark it so OnTime's submit drain discards it instead of
	// opening it.
	b.canceled[orderID] = struct{}{}
}

// HasOpenOrders reports whether any maker order is still resting.
func (b *SimBroker) HasOpenOrders() bool {
	return len(b.makerOrders) > 0
}
