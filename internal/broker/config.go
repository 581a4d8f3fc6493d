package broker

import "fmt"

// Config holds the simulator's fee schedule and realism knobs. Zero value
// is not meaningful; use DefaultConfig and override from there.
type Config struct {
	MakerFeeFrac float64 `mapstructure:"maker_fee_frac"`
	TakerFeeFrac float64 `mapstructure:"taker_fee_frac"`

	SubmitLatencyMs int64 `mapstructure:"submit_latency_ms"`
	CancelLatencyMs int64 `mapstructure:"cancel_latency_ms"`

	MakerQueueAheadFactor   float64 `mapstructure:"maker_queue_ahead_factor"`
	MakerQueueAheadExtraQty float64 `mapstructure:"maker_queue_ahead_extra_qty"`
	MakerTradeParticipation float64 `mapstructure:"maker_trade_participation"`
}

// DefaultConfig matches the reference simulator's defaults: 4bps maker fee,
// 5bps taker fee, zero latency, full (1x) queue-ahead assumption.
func DefaultConfig() Config {
	return Config{
		MakerFeeFrac:            0.0004,
		TakerFeeFrac:            0.0005,
		MakerQueueAheadFactor:   1.0,
		MakerQueueAheadExtraQty: 0.0,
		MakerTradeParticipation: 1.0,
	}
}

// Validate rejects configs that would make the queue model or latency
// queues misbehave.
func (c Config) Validate() error {
	if c.SubmitLatencyMs < 0 {
		return fmt.Errorf("%w: submit_latency_ms must be >= 0, got %d", ErrConfig, c.SubmitLatencyMs)
	}
	if c.CancelLatencyMs < 0 {
		return fmt.Errorf("%w: cancel_latency_ms must be >= 0, got %d", ErrConfig, c.CancelLatencyMs)
	}
	if c.MakerQueueAheadFactor < 0 {
		return fmt.Errorf("%w: maker_queue_ahead_factor must be >= 0, got %v", ErrConfig, c.MakerQueueAheadFactor)
	}
	if c.MakerQueueAheadExtraQty < 0 {
		return fmt.Errorf("%w: maker_queue_ahead_extra_qty must be >= 0, got %v", ErrConfig, c.MakerQueueAheadExtraQty)
	}
	if c.MakerTradeParticipation <= 0 || c.MakerTradeParticipation > 1 {
		return fmt.Errorf("%w: maker_trade_participation must be in (0, 1], got %v", ErrConfig, c.MakerTradeParticipation)
	}
	return nil
}
