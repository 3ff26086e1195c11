package main

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"coinhunter/internal/allocation"
	"coinhunter/internal/api"
	"coinhunter/internal/events"
	"coinhunter/internal/exchange"
	"coinhunter/internal/indicators"
	"coinhunter/internal/lifecycle"
	"coinhunter/internal/monitor"
	"coinhunter/internal/notify"
	"coinhunter/internal/position"
	"coinhunter/internal/scheduler"
	"coinhunter/internal/strategy"
	"coinhunter/internal/tradelog"
	"coinhunter/pkg/config"
	"coinhunter/pkg/db"
	"coinhunter/pkg/logger"
)

const version = "v4.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSONPath)
	defer logger.Sync()

	logger.Info("starting coinhunter",
		zap.String("version", version),
		zap.String("mode", cfg.Mode),
		zap.Duration("poll_interval", cfg.PollInterval))

	lock, err := lifecycle.Acquire(cfg.LockPath)
	if err != nil {
		logger.Fatal("run lock", zap.Error(err))
	}
	defer lock.Release()

	ins, err := config.LoadInstruments(cfg.InstrumentsPath)
	if err != nil {
		logger.Fatal("load instruments", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	store := position.NewStore(database)
	if err := store.Load(ctx); err != nil {
		logger.Fatal("load positions", zap.Error(err))
	}
	if open := store.All(); len(open) > 0 {
		logger.Info("resuming open positions", zap.Int("count", len(open)))
	}

	indEngine := indicators.NewEngine(indicators.DefaultWindow)
	strategies := buildStrategies(ins, indEngine, cfg.ScoreFilePath != "")
	if len(strategies) == 0 {
		logger.Fatal("no usable strategy assignments")
	}

	quote := quoteAsset(ins)
	gateway := exchange.WithPriceCache(buildGateway(cfg, database, quote), 10*time.Second)
	trades := tradelog.NewRecorder(database, bus, tradelog.DefaultRetention)

	notifier := buildNotifier(cfg)
	mon := &monitor.Monitor{Bus: bus, Notifier: notifier}
	mon.Start(ctx)

	metrics := monitor.NewMetrics()

	stop := lifecycle.NewFileStop(cfg.StopPath)
	defer stop.Cleanup()

	sched := &scheduler.Scheduler{
		Instruments:    ins,
		Strategies:     strategies,
		Store:          store,
		Gateway:        gateway,
		Trades:         trades,
		Bus:            bus,
		Metrics:        metrics,
		Health:         lifecycle.NewHealthWriter(cfg.HealthPath),
		Stop:           stop,
		PollInterval:   cfg.PollInterval,
		MinimumCapital: cfg.MinimumCapital,
		QuoteAsset:     quote,
	}
	if cfg.ScoreFilePath != "" {
		sched.Switcher = allocation.NewSwitcher(ins.Assignments)
		sched.Weigher = allocation.NewWeigher()
		sched.ScorePath = cfg.ScoreFilePath
		sched.WeightPath = cfg.WeightFilePath
		logger.Info("performance allocation enabled",
			zap.String("score_file", cfg.ScoreFilePath))
	}

	srv := api.NewServer(bus, store, trades, metrics, api.SystemMeta{
		Mode:    cfg.Mode,
		Symbols: ins.Tickers(),
		Version: version,
	})
	go func() {
		if err := srv.Start(":" + cfg.APIPort); err != nil {
			logger.Error("status api stopped", zap.Error(err))
		}
	}()
	logger.Info("status api listening", zap.String("port", cfg.APIPort))

	notifier.Notify("coinhunter started in "+cfg.Mode+" mode", notify.SeverityInfo)
	sched.Run(ctx)
	notifier.Notify("coinhunter stopped", notify.SeverityInfo)
	logger.Info("shutdown complete")
}

// buildStrategies instantiates one strategy per assigned name. A bad
// assignment excludes only its own instruments. When switching is
// enabled every registry strategy is built so the switcher can move an
// instrument onto any of them.
func buildStrategies(ins *config.Instruments, indEngine *indicators.Engine, allRegistered bool) map[string]strategy.Strategy {
	sctx := &strategy.Context{Indicators: indEngine}
	strategies := make(map[string]strategy.Strategy)
	for ticker, name := range ins.Assignments {
		if _, ok := strategies[name]; ok {
			continue
		}
		strat, err := strategy.New(name, ins.StrategyParams(name), sctx)
		if err != nil {
			logger.Error("skipping instrument with bad strategy assignment",
				zap.String("ticker", ticker),
				zap.String("strategy", name),
				zap.Error(err))
			continue
		}
		strategies[name] = strat
	}
	if allRegistered {
		for _, name := range []string{strategy.NameRSI, strategy.NameMACD, strategy.NameMACross} {
			if _, ok := strategies[name]; ok {
				continue
			}
			strat, err := strategy.New(name, ins.StrategyParams(name), sctx)
			if err != nil {
				continue
			}
			strategies[name] = strat
		}
	}
	return strategies
}

func buildGateway(cfg *config.Config, database *db.Database, quote string) exchange.Gateway {
	if cfg.IsLive() {
		gw, err := exchange.NewBinanceGateway(
			cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceTestnet,
			database, cfg.MinNotional)
		if err != nil {
			logger.Fatal("binance gateway", zap.Error(err))
		}
		logger.Info("live trading enabled", zap.Bool("testnet", cfg.BinanceTestnet))
		return gw
	}
	live, err := exchange.NewBinanceGateway("", "", cfg.BinanceTestnet, nil, cfg.MinNotional)
	if err != nil {
		logger.Fatal("market data client", zap.Error(err))
	}
	logger.Info("paper trading enabled",
		zap.Float64("balance", cfg.PaperBalance),
		zap.Float64("slippage", cfg.PaperSlippage),
		zap.Float64("fee_rate", cfg.PaperFeeRate))
	return exchange.NewPaperGateway(live, database, quote,
		cfg.PaperBalance, cfg.PaperSlippage, cfg.PaperFeeRate)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.TelegramEnabled || cfg.TelegramToken == "" {
		return notify.Noop{}
	}
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		logger.Warn("telegram disabled", zap.Error(err))
		return notify.Noop{}
	}
	logger.Info("telegram alerts enabled")
	return tg
}

// quoteAsset derives the quote currency from the first ticker, e.g.
// "KRW-BTC" quotes in KRW.
func quoteAsset(ins *config.Instruments) string {
	for _, t := range ins.Tickers() {
		if i := strings.Index(t, "-"); i > 0 {
			return t[:i]
		}
	}
	return "KRW"
}
