package types

import "github.com/google/uuid"

// OrderType is the execution style of an order submitted to the broker.
type OrderType int

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

// TimeInForce governs what happens to the unfilled remainder of a limit
// order at submission time.
type TimeInForce int

const (
	GTC TimeInForce = iota // good-til-canceled: remainder rests
	IOC                    // immediate-or-cancel: remainder discarded
)

func (t TimeInForce) String() string {
	if t == GTC {
		return "GTC"
	}
	return "IOC"
}

// Order is an instruction submitted to the SimBroker. Price is only
// meaningful for Limit orders.
type Order struct {
	ID            string
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      float64
	Price         float64 // meaningful only when Type == Limit
	HasPrice      bool
	TimeInForce   TimeInForce
	PostOnly      bool
	CreatedTimeMs int64
}

// NewOrderID generates a fresh, random order identifier.
func NewOrderID() string {
	return uuid.NewString()
}

// Liquidity records whether a Fill added or removed resting liquidity.
type Liquidity int

const (
	Maker Liquidity = iota
	Taker
)

func (l Liquidity) String() string {
	if l == Maker {
		return "maker"
	}
	return "taker"
}

// Fill is a single execution report produced by the broker.
type Fill struct {
	OrderID     string
	Symbol      string
	Side        Side
	Quantity    float64
	Price       float64
	FeeUSDT     float64
	EventTimeMs int64
	Liquidity   Liquidity
}
