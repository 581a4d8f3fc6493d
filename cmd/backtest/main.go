// Command backtest replays one or more JSON-lines market-data files
// through the simulation kernel and prints the resulting portfolio.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btengine/internal/broker"
	"btengine/internal/config"
	"btengine/internal/engine"
	"btengine/internal/feed"
	"btengine/internal/metrics"
	"btengine/internal/store"
	"btengine/internal/stream"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (uses built-in defaults if empty)")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	sources := flag.String("sources", "", "comma-separated JSON-lines source files")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	configureLogging(cfg.Logging.Level)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sourcePaths := splitNonEmpty(*sources)
	if len(sourcePaths) == 0 {
		sourcePaths = cfg.Feed.Sources
	}
	if err := run(ctx, cfg, sourcePaths); err != nil {
		log.Fatal().Err(err).Msg("backtest run failed")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogging(level string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("serving prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server exited")
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config, sourcePaths []string) error {
	brokerCfg := broker.Config{
		MakerFeeFrac:            cfg.Broker.MakerFeeFrac,
		TakerFeeFrac:            cfg.Broker.TakerFeeFrac,
		SubmitLatencyMs:         cfg.Broker.SubmitLatencyMs,
		CancelLatencyMs:         cfg.Broker.CancelLatencyMs,
		MakerQueueAheadFactor:   cfg.Broker.MakerQueueAheadFactor,
		MakerQueueAheadExtraQty: cfg.Broker.MakerQueueAheadExtraQty,
		MakerTradeParticipation: cfg.Broker.MakerTradeParticipation,
	}
	br, err := broker.New(brokerCfg)
	if err != nil {
		return fmt.Errorf("construct broker: %w", err)
	}

	eng, err := engine.New(engine.Config{
		TickIntervalMs:    cfg.Engine.TickIntervalMs,
		TradingStartMs:    cfg.Engine.TradingStartMs,
		HasTradingStartMs: cfg.Engine.HasTradingStartMs,
		TradingEndMs:      cfg.Engine.TradingEndMs,
		HasTradingEndMs:   cfg.Engine.HasTradingEndMs,
	}, br)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	src, closeSrc, err := openSources(sourcePaths)
	if err != nil {
		return err
	}
	defer closeSrc()

	// One pool per source keeps each file's own order; Merge then
	// interleaves them by event time for the engine.
	perSource := make([]stream.EventStream, 0, len(src))
	for _, s := range src {
		perSource = append(perSource, feed.NewPool([]feed.Source{s}).Start(ctx))
	}
	evStream := stream.Merge(perSource...)

	res, err := eng.Run(evStream, nil)
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	for _, f := range res.Ctx.Broker.Fills {
		metrics.RecordFill(f.Symbol, f.Liquidity.String(), f.Quantity, f.FeeUSDT)
	}
	metrics.SetRealizedPnL("portfolio", res.Ctx.Broker.Portfolio.RealizedPnLUSDT)

	log.Info().
		Float64("realized_pnl_usdt", res.Ctx.Broker.Portfolio.RealizedPnLUSDT).
		Float64("fees_paid_usdt", res.Ctx.Broker.Portfolio.FeesPaidUSDT).
		Int("fills", len(res.Ctx.Broker.Fills)).
		Msg("backtest complete")

	if cfg.Store.Enabled {
		if err := persistRun(cfg.Store.Path, res); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
	}

	return nil
}

func openSources(paths []string) ([]feed.Source, func(), error) {
	sources := make([]feed.Source, 0, len(paths))
	opened := make([]*feed.JSONLSource, 0, len(paths))
	closeAll := func() {
		for _, s := range opened {
			s.Close()
		}
	}

	for _, p := range paths {
		s, err := feed.OpenJSONLSource(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open source %s: %w", p, err)
		}
		opened = append(opened, s)
		sources = append(sources, s)
	}
	return sources, closeAll, nil
}

func persistRun(path string, res engine.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	positions := make(map[string]store.PositionSnapshot)
	for _, f := range res.Ctx.Broker.Fills {
		pos := res.Ctx.Broker.Portfolio.Position(f.Symbol)
		positions[f.Symbol] = store.PositionSnapshot{Qty: pos.Qty, AvgPrice: pos.AvgPrice}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = st.SaveRun(store.RunSnapshot{
		StartedAt:       now,
		FinishedAt:      now,
		Fills:           res.Ctx.Broker.Fills,
		Positions:       positions,
		RealizedPnLUSDT: res.Ctx.Broker.Portfolio.RealizedPnLUSDT,
		FeesPaidUSDT:    res.Ctx.Broker.Portfolio.FeesPaidUSDT,
	})
	return err
}
