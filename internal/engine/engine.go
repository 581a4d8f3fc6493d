// Package engine drives a deterministic, single-threaded backtest: it
// dispatches a time-ordered event stream into a SimBroker and a strategy,
// advancing a tick grid and gating funding application along the way.
package engine

import (
	"fmt"

	"btengine/internal/book"
	"btengine/internal/broker"
	"btengine/internal/stream"
	"btengine/internal/types"
)

// Config holds the engine's time-grid and trading-window settings.
type Config struct {
	TickIntervalMs int64 `mapstructure:"tick_interval_ms"`

	TradingStartMs    int64 `mapstructure:"trading_start_ms"`
	HasTradingStartMs bool  `mapstructure:"-"`
	TradingEndMs      int64 `mapstructure:"trading_end_ms"`
	HasTradingEndMs   bool  `mapstructure:"-"`
}

// DefaultConfig ticks once a second with no trading-window restriction.
func DefaultConfig() Config {
	return Config{TickIntervalMs: 1000}
}

// Context carries all state visible to a strategy: the clock, the broker,
// per-symbol books, and the latest market-data snapshot per symbol.
type Context struct {
	Config Config
	Broker *broker.SimBroker

	NowMs int64

	books        map[string]*book.L2Book
	Mark         map[string]types.MarkPrice
	Ticker       map[string]types.Ticker
	OpenInterest map[string]types.OpenInterest
	Liquidation  map[string]types.Liquidation

	lastFundingAppliedMs map[string]int64
}

func newContext(cfg Config, br *broker.SimBroker) *Context {
	return &Context{
		Config:               cfg,
		Broker:               br,
		books:                make(map[string]*book.L2Book),
		Mark:                 make(map[string]types.MarkPrice),
		Ticker:               make(map[string]types.Ticker),
		OpenInterest:         make(map[string]types.OpenInterest),
		Liquidation:          make(map[string]types.Liquidation),
		lastFundingAppliedMs: make(map[string]int64),
	}
}

// IsTradingTime reports whether NowMs falls inside the configured trading
// window (an unset bound is unrestricted on that side).
func (c *Context) IsTradingTime() bool {
	if c.Config.HasTradingStartMs && c.NowMs < c.Config.TradingStartMs {
		return false
	}
	if c.Config.HasTradingEndMs && c.NowMs > c.Config.TradingEndMs {
		return false
	}
	return true
}

// Book returns the L2 book for symbol, creating an empty one on first use.
func (c *Context) Book(symbol string) *book.L2Book {
	b, ok := c.books[symbol]
	if !ok {
		b = book.New()
		c.books[symbol] = b
	}
	return b
}

// ApplyFundingIfDue applies a funding settlement at most once per funding
// timestamp, triggered by the first MarkPrice event observed at or after
// NextFundingTimeMs. Returns the funding PnL applied, or 0 if nothing was
// due.
func (c *Context) ApplyFundingIfDue(mp types.MarkPrice) float64 {
	if mp.NextFundingTimeMs <= 0 {
		return 0
	}
	if mp.EventTimeMs < mp.NextFundingTimeMs {
		return 0
	}

	lastApplied, ok := c.lastFundingAppliedMs[mp.Symbol]
	if !ok {
		lastApplied = -1
	}
	if mp.NextFundingTimeMs <= lastApplied {
		return 0
	}

	c.lastFundingAppliedMs[mp.Symbol] = mp.NextFundingTimeMs
	return c.Broker.Portfolio.ApplyFunding(mp.Symbol, mp.MarkPrice, mp.FundingRate)
}

// Strategy is the marker interface a backtest driver accepts. A concrete
// strategy implements whichever of StartHandler/TickHandler/EventHandler/
// EndHandler it needs; Run type-asserts for each independently, so none are
// mandatory.
type Strategy interface{}

// StartHandler is invoked once before the first event.
type StartHandler interface {
	OnStart(ctx *Context)
}

// TickHandler is invoked on every tick-grid boundary, including the
// anchoring first tick and a final tick after the last event.
type TickHandler interface {
	OnTick(nowMs int64, ctx *Context)
}

// EventHandler is invoked once per dispatched event, after the engine has
// applied its own effects (book/broker updates, mark-price bookkeeping).
type EventHandler interface {
	OnEvent(event types.Event, ctx *Context)
}

// EndHandler is invoked once after the last event and the final tick.
type EndHandler interface {
	OnEnd(ctx *Context)
}

// Result is the terminal state of a completed run.
type Result struct {
	Ctx *Context
}

// Engine replays an ordered event stream through a SimBroker.
type Engine struct {
	Config Config
	Broker *broker.SimBroker
}

// New constructs an engine. If br is nil, a broker is created with
// broker.DefaultConfig().
func New(cfg Config, br *broker.SimBroker) (*Engine, error) {
	if br == nil {
		var err error
		br, err = broker.New(broker.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}
	return &Engine{Config: cfg, Broker: br}, nil
}

// Run dispatches events, drained from src in order, into the broker and
// strategy. src must already be time-ordered (see the stream package for
// merging multiple sources); Run does not itself sort.
func (e *Engine) Run(src stream.EventStream, strategy Strategy) (Result, error) {
	ctx := newContext(e.Config, e.Broker)

	onStart, _ := strategy.(StartHandler)
	onTick, hasTick := strategy.(TickHandler)
	onEvent, _ := strategy.(EventHandler)
	onEnd, _ := strategy.(EndHandler)

	if onStart != nil {
		onStart.OnStart(ctx)
	}

	var nextTickMs int64
	hasNextTick := false
	tickInterval := e.Config.TickIntervalMs

	for {
		ev, hasEv := src.Next()
		if !hasEv {
			break
		}
		now := ev.When()

		if tickInterval > 0 && hasTick {
			if !hasNextTick {
				nextTickMs = (now / tickInterval) * tickInterval
				hasNextTick = true
			}
			for nextTickMs <= now {
				ctx.NowMs = nextTickMs
				ctx.Broker.OnTime(nextTickMs)
				onTick.OnTick(nextTickMs, ctx)
				nextTickMs += tickInterval
			}
		}

		ctx.NowMs = now
		ctx.Broker.OnTime(now)

		switch e := ev.(type) {
		case types.DepthUpdate:
			ctx.Broker.OnDepthUpdate(e, ctx.Book(e.Symbol))
		case types.Trade:
			ctx.Broker.OnTrade(e, now)
		case types.MarkPrice:
			ctx.Mark[e.Symbol] = e
			ctx.ApplyFundingIfDue(e)
		case types.Ticker:
			ctx.Ticker[e.Symbol] = e
		case types.OpenInterest:
			ctx.OpenInterest[e.Symbol] = e
		case types.Liquidation:
			ctx.Liquidation[e.Symbol] = e
		default:
			return Result{}, fmt.Errorf("engine: unsupported event type %T", ev)
		}

		if onEvent != nil {
			onEvent.OnEvent(ev, ctx)
		}
	}

	if hasNextTick && hasTick {
		ctx.NowMs = nextTickMs
		ctx.Broker.OnTime(nextTickMs)
		onTick.OnTick(nextTickMs, ctx)
	}

	if onEnd != nil {
		onEnd.OnEnd(ctx)
	}

	return Result{Ctx: ctx}, nil
}
