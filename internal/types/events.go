// Package types defines the tagged event union and order-side vocabulary
// shared by every layer of the simulation kernel: the book, the queue
// model, the broker, and the engine.
package types

// Side is a trading direction.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// BookSide distinguishes the two sides of an L2 book, independent of any
// particular order's Side (a resting buy order lives on the bid side).
type BookSide int

const (
	Bid BookSide = iota
	Ask
)

func (s BookSide) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// PriceQty is a single (price, quantity) level update. A quantity of zero
// or less deletes the level.
type PriceQty struct {
	Price    float64
	Quantity float64
}

// EventTag discriminates the Event union; every event type reports its own
// tag via Tag().
type EventTag int

const (
	EventDepthUpdate EventTag = iota
	EventTrade
	EventMarkPrice
	EventTicker
	EventOpenInterest
	EventLiquidation
)

// Event is implemented by every market-data/fill-adjacent record the engine
// can consume. When reports the monotone anchor the engine advances on;
// Received is a wall-clock hint carried for latency accounting by callers,
// not used by the kernel itself.
type Event interface {
	Tag() EventTag
	When() int64
	Received() int64
}

// DepthUpdate is an L2 depth delta. A quantity of 0 in BidUpdates/AskUpdates
// deletes that price level.
type DepthUpdate struct {
	ReceivedTimeNs int64
	EventTimeMs    int64

	TransactionTimeMs int64
	Symbol            string

	FirstUpdateID     int64
	FinalUpdateID     int64
	PrevFinalUpdateID int64

	BidUpdates []PriceQty
	AskUpdates []PriceQty
}

func (e DepthUpdate) Tag() EventTag  { return EventDepthUpdate }
func (e DepthUpdate) When() int64    { return e.EventTimeMs }
func (e DepthUpdate) Received() int64 { return e.ReceivedTimeNs }

// Trade is a public trade print. IsBuyerMaker follows Binance-style
// semantics: true means the buyer was the resting (maker) side, i.e. a
// sell aggressor hit the bids.
type Trade struct {
	ReceivedTimeNs int64
	EventTimeMs    int64
	TradeTimeMs    int64
	Symbol         string

	TradeID      int64
	Price        float64
	Quantity     float64
	IsBuyerMaker bool
}

func (e Trade) Tag() EventTag   { return EventTrade }
func (e Trade) When() int64    { return e.EventTimeMs }
func (e Trade) Received() int64 { return e.ReceivedTimeNs }

// MarkPrice is an exchange mark-price/funding snapshot.
type MarkPrice struct {
	ReceivedTimeNs int64
	EventTimeMs    int64
	Symbol         string

	MarkPrice         float64
	IndexPrice        float64
	FundingRate       float64
	NextFundingTimeMs int64
}

func (e MarkPrice) Tag() EventTag   { return EventMarkPrice }
func (e MarkPrice) When() int64    { return e.EventTimeMs }
func (e MarkPrice) Received() int64 { return e.ReceivedTimeNs }

// Ticker is a passthrough 24h rolling-stats record (Binance-style).
type Ticker struct {
	ReceivedTimeNs int64
	EventTimeMs    int64
	Symbol         string

	PriceChange          float64
	PriceChangePercent   float64
	WeightedAveragePrice float64
	LastPrice            float64
	LastQuantity         float64
	OpenPrice            float64
	HighPrice            float64
	LowPrice             float64
	BaseAssetVolume      float64
	QuoteAssetVolume     float64

	StatisticsOpenTimeMs  int64
	StatisticsCloseTimeMs int64
	FirstTradeID          int64
	LastTradeID           int64
	TotalTrades           int64
}

func (e Ticker) Tag() EventTag   { return EventTicker }
func (e Ticker) When() int64    { return e.EventTimeMs }
func (e Ticker) Received() int64 { return e.ReceivedTimeNs }

// OpenInterest is a (typically low-frequency) open-interest snapshot.
type OpenInterest struct {
	ReceivedTimeNs int64
	EventTimeMs    int64
	TimestampMs    int64
	Symbol         string

	SumOpenInterest      float64
	SumOpenInterestValue float64
}

func (e OpenInterest) Tag() EventTag   { return EventOpenInterest }
func (e OpenInterest) When() int64    { return e.EventTimeMs }
func (e OpenInterest) Received() int64 { return e.ReceivedTimeNs }

// Liquidation is a public forced-order (liquidation) record.
type Liquidation struct {
	ReceivedTimeNs int64
	EventTimeMs    int64
	Symbol         string

	OrderSide         string
	OrderType         string
	TimeInForce       string
	Quantity          float64
	Price             float64
	AveragePrice      float64
	OrderStatus       string
	LastFilledQty     float64
	FilledQty         float64
	TradeTimeMs       int64
}

func (e Liquidation) Tag() EventTag   { return EventLiquidation }
func (e Liquidation) When() int64    { return e.EventTimeMs }
func (e Liquidation) Received() int64 { return e.ReceivedTimeNs }
