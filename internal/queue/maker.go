// Package queue approximates maker fills using visible book quantity plus
// the public trade tape, since a backtest never sees the real exchange
// matching-engine queue position.
package queue

import (
	"fmt"
	"math"

	"btengine/internal/types"
)

const priceAbsTol = 1e-9

// Order tracks one resting limit order's estimated queue position.
//
// Model:
//   - At placement, assume the order sits behind all currently visible
//     quantity at its price level (QueueAheadQty).
//   - QueueAheadQty only decreases, driven by book-level decreases
//     (cancels/executions ahead of us) or trade-tape prints against our
//     side at our exact price. New liquidity at the level is assumed to
//     join behind us, so visible-quantity increases never move it.
type Order struct {
	Symbol   string
	Side     types.Side // Buy -> resting on bid; Sell -> resting on ask
	Price    float64
	Quantity float64

	QueueAheadQty      float64
	FilledQty          float64
	TradeParticipation float64 // (0, 1]; conservative if < 1
}

// New returns an Order with TradeParticipation defaulted to 1.0 (full
// participation in matching trade-tape volume).
func New(symbol string, side types.Side, price, quantity, queueAheadQty float64) *Order {
	return &Order{
		Symbol:             symbol,
		Side:               side,
		Price:              price,
		Quantity:           quantity,
		QueueAheadQty:      queueAheadQty,
		TradeParticipation: 1.0,
	}
}

// RemainingQty is the quantity still unfilled.
func (o *Order) RemainingQty() float64 {
	rem := o.Quantity - o.FilledQty
	if rem > 0 {
		return rem
	}
	return 0
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.RemainingQty() <= 0
}

// OnBookQtyUpdate updates the estimated queue ahead from a depth-level
// update at this order's price. Only decreases help us; increases are
// assumed to land behind us and are ignored.
func (o *Order) OnBookQtyUpdate(newVisibleQty float64) {
	if newVisibleQty < 0 {
		panic(fmt.Sprintf("queue: new_visible_qty must be >= 0, got %v", newVisibleQty))
	}
	if newVisibleQty < o.QueueAheadQty {
		o.QueueAheadQty = newVisibleQty
	}
}

// OnTrade consumes a trade-tape print, advancing queue position and
// possibly filling the order, and returns the base quantity filled by this
// trade (0 if the trade does not apply).
func (o *Order) OnTrade(trade types.Trade) float64 {
	if trade.Symbol != o.Symbol {
		return 0
	}
	if o.IsFilled() {
		return 0
	}
	if math.Abs(trade.Price-o.Price) > priceAbsTol {
		return 0
	}

	// Binance semantics: IsBuyerMaker=true means a sell aggressor hit the
	// bids; IsBuyerMaker=false means a buy aggressor hit the asks.
	if o.Side == types.Buy {
		if !trade.IsBuyerMaker {
			return 0
		}
	} else {
		if trade.IsBuyerMaker {
			return 0
		}
	}

	if o.TradeParticipation <= 0 || o.TradeParticipation > 1 {
		panic(fmt.Sprintf("queue: trade_participation must be in (0, 1], got %v", o.TradeParticipation))
	}

	v := trade.Quantity * o.TradeParticipation
	if v <= 0 {
		return 0
	}

	if o.QueueAheadQty >= v {
		o.QueueAheadQty -= v
		return 0
	}

	remainingAfterQueue := v - o.QueueAheadQty
	o.QueueAheadQty = 0

	fill := o.RemainingQty()
	if remainingAfterQueue < fill {
		fill = remainingAfterQueue
	}
	o.FilledQty += fill
	return fill
}
