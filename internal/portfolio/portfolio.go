// Package portfolio tracks open positions and realized PnL across fills
// and funding payments, suitable for a futures-style backtest account.
package portfolio

import "btengine/internal/types"

const dustQty = 1e-12

// Position is one symbol's net exposure. Qty is signed: positive is long,
// negative is short. AvgPrice is the weighted-average entry price for the
// currently open Qty and is always 0 when Qty is 0.
type Position struct {
	Qty      float64
	AvgPrice float64
}

// Portfolio tracks per-symbol positions plus cumulative realized PnL and
// fees paid.
type Portfolio struct {
	RealizedPnLUSDT float64
	FeesPaidUSDT    float64
	positions       map[string]*Position
}

// New returns an empty portfolio.
func New() *Portfolio {
	return &Portfolio{positions: make(map[string]*Position)}
}

// Position returns the current position for symbol (a zero Position if none
// exists yet). The returned pointer is a live view into the portfolio's
// state, not a copy.
func (p *Portfolio) Position(symbol string) *Position {
	return p.pos(symbol)
}

func (p *Portfolio) pos(symbol string) *Position {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = &Position{}
		p.positions[symbol] = pos
	}
	return pos
}

// ApplyFill updates the position and realized PnL for a fill. qty<=0 is a
// no-op.
func (p *Portfolio) ApplyFill(symbol string, side types.Side, qty, price, feeUSDT float64) {
	if qty <= 0 {
		return
	}

	pos := p.pos(symbol)

	signed := qty
	if side == types.Sell {
		signed = -qty
	}
	newQty := pos.Qty + signed
	if newQty > -dustQty && newQty < dustQty {
		newQty = 0
	}

	p.FeesPaidUSDT += feeUSDT
	p.RealizedPnLUSDT -= feeUSDT

	directionSign := func(q float64) float64 {
		if q > 0 {
			return 1.0
		}
		return -1.0
	}

	// Full close without flip: realize PnL on the whole position.
	if newQty == 0.0 && pos.Qty != 0.0 {
		closedQty := abs(pos.Qty)
		pnl := closedQty * (price - pos.AvgPrice) * directionSign(pos.Qty)
		p.RealizedPnLUSDT += pnl
		pos.Qty = 0
		pos.AvgPrice = 0
		return
	}

	sameDirectionOrFlat := pos.Qty == 0.0 ||
		(pos.Qty > 0 && newQty > 0) ||
		(pos.Qty < 0 && newQty < 0)

	if sameDirectionOrFlat {
		if newQty == 0.0 {
			pos.Qty = 0
			pos.AvgPrice = 0
			return
		}

		if pos.Qty == 0.0 {
			pos.AvgPrice = price
			pos.Qty = newQty
			return
		}

		if abs(newQty) > abs(pos.Qty) {
			// Increasing same-direction exposure: weighted average.
			oldNotional := abs(pos.Qty) * pos.AvgPrice
			addNotional := abs(signed) * price
			pos.AvgPrice = (oldNotional + addNotional) / abs(newQty)
			pos.Qty = newQty
			return
		}

		// Reducing without flipping: realize PnL on the reduced part.
		closedQty := abs(signed)
		pnl := closedQty * (price - pos.AvgPrice) * directionSign(pos.Qty)
		p.RealizedPnLUSDT += pnl
		pos.Qty = newQty
		if pos.Qty == 0.0 {
			pos.AvgPrice = 0
		}
		return
	}

	// Flipped direction: close old fully, open new residual at this price.
	closedQty := abs(pos.Qty)
	pnl := closedQty * (price - pos.AvgPrice) * directionSign(pos.Qty)
	p.RealizedPnLUSDT += pnl

	pos.Qty = newQty
	pos.AvgPrice = price
}

// ApplyFunding applies a single funding payment for symbol and returns the
// PnL delta (positive funding rate with a long position pays out, i.e. a
// negative delta). A missing or flat position is a no-op returning 0.
func (p *Portfolio) ApplyFunding(symbol string, markPrice, fundingRate float64) float64 {
	pos, ok := p.positions[symbol]
	if !ok || pos.Qty == 0.0 {
		return 0
	}

	pnl := -(pos.Qty * markPrice) * fundingRate
	p.RealizedPnLUSDT += pnl
	return pnl
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
