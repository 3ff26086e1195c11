package scheduler

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coinhunter/internal/events"
	"coinhunter/internal/exchange"
	"coinhunter/internal/lifecycle"
	"coinhunter/internal/position"
	"coinhunter/internal/strategy"
	"coinhunter/internal/tradelog"
	"coinhunter/pkg/config"
	"coinhunter/pkg/db"
)

type quoteBook map[string]float64

func (q quoteBook) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if p, ok := q[symbol]; ok {
		return p, nil
	}
	return 0, exchange.ErrPriceUnavailable
}

// scriptStrategy lets each test dictate the signals directly.
type scriptStrategy struct {
	name    string
	enter   func(symbol string, price float64) bool
	exit    func(symbol string, price float64) bool
	panicOn string
}

func (s *scriptStrategy) Name() string { return s.name }

func (s *scriptStrategy) ShouldEnter(symbol string, price float64) bool {
	if symbol == s.panicOn {
		panic("strategy blew up")
	}
	return s.enter != nil && s.enter(symbol, price)
}

func (s *scriptStrategy) ShouldExit(symbol string, price float64) bool {
	if symbol == s.panicOn {
		panic("strategy blew up")
	}
	return s.exit != nil && s.exit(symbol, price)
}

func (s *scriptStrategy) Detail(symbol string) string { return "scripted" }

type fixture struct {
	db     *db.Database
	store  *position.Store
	prices quoteBook
	sched  *Scheduler
}

// newFixture wires a scheduler over an in-memory database and a paper
// gateway with zero slippage and fees, so fills land at the quoted price.
func newFixture(t *testing.T, symbols map[string]float64, strat *scriptStrategy) *fixture {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatal(err)
	}

	store := position.NewStore(database)
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	prices := quoteBook{}
	assignments := map[string]string{}
	capital := map[string]float64{}
	for sym, price := range symbols {
		prices[sym] = price
		assignments[sym] = strat.name
		capital[sym] = 500
	}
	ins := &config.Instruments{
		Assignments: assignments,
		Capital:     capital,
		Precision:   map[string]int{},
	}

	bus := events.NewBus()
	return &fixture{
		db:     database,
		store:  store,
		prices: prices,
		sched: &Scheduler{
			Instruments:    ins,
			Strategies:     map[string]strategy.Strategy{strat.name: strat},
			Store:          store,
			Gateway:        exchange.NewPaperGateway(prices, database, "KRW", 100000, 0, 0),
			Trades:         tradelog.NewRecorder(database, bus, 100),
			Bus:            bus,
			MinimumCapital: 100,
			QuoteAsset:     "KRW",
		},
	}
}

func TestCycleEntryThenExitWithPnL(t *testing.T) {
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(symbol string, price float64) bool { return price <= 100 },
		exit:  func(symbol string, price float64) bool { return price >= 120 },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	ctx := context.Background()

	f.sched.RunCycle(ctx)
	pos := f.store.Get("KRW-BTC")
	if pos == nil {
		t.Fatal("expected open position after entry cycle")
	}
	// 500 capital at price 100 buys 5 units.
	if math.Abs(pos.Amount-5) > 1e-9 {
		t.Fatalf("amount = %v, want 5", pos.Amount)
	}
	if pos.EntryPrice != 100 {
		t.Fatalf("entry price = %v, want 100", pos.EntryPrice)
	}

	f.prices["KRW-BTC"] = 120
	f.sched.RunCycle(ctx)
	if f.store.Get("KRW-BTC") != nil {
		t.Fatal("position should be closed after exit cycle")
	}

	logs, err := f.sched.Trades.Recent(ctx, "KRW-BTC", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d trade logs, want 2", len(logs))
	}
	// Newest first: the exit row.
	exit := logs[0]
	if exit.Event != db.EventExit {
		t.Fatalf("newest log event = %q, want exit", exit.Event)
	}
	if math.Abs(exit.PnL-100) > 1e-9 {
		t.Errorf("pnl = %v, want 100", exit.PnL)
	}
	if math.Abs(exit.PnLPct-20) > 1e-9 {
		t.Errorf("pnl pct = %v, want 20", exit.PnLPct)
	}
}

func TestNoReentrySameCycle(t *testing.T) {
	// Always wants in and out at once; the exit must win and the reentry
	// must wait for the next cycle.
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(string, float64) bool { return true },
		exit:  func(string, float64) bool { return true },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	ctx := context.Background()

	f.sched.RunCycle(ctx) // opens
	if f.store.Get("KRW-BTC") == nil {
		t.Fatal("expected open position")
	}
	f.sched.RunCycle(ctx) // closes, must not reopen
	if f.store.Get("KRW-BTC") != nil {
		t.Fatal("position reopened in the cycle that closed it")
	}
	f.sched.RunCycle(ctx) // free to reopen now
	if f.store.Get("KRW-BTC") == nil {
		t.Fatal("expected reentry on the following cycle")
	}
}

func TestCapitalBelowMinimumSkipsEntry(t *testing.T) {
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(string, float64) bool { return true },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	// Allocation (500) sits under the floor; the ample account balance
	// must not rescue the entry.
	f.sched.MinimumCapital = 1000

	alerts, unsub := f.sched.Bus.Subscribe(events.EventAlert, 10)
	defer unsub()

	stats := f.sched.RunCycle(context.Background())
	if f.store.Get("KRW-BTC") != nil {
		t.Fatal("entry should be blocked when allocated capital is below the minimum")
	}
	if stats.Errors != 0 {
		t.Fatalf("capital floor is not an error, got %d errors", stats.Errors)
	}
	select {
	case msg := <-alerts:
		if _, ok := msg.(events.AlertPayload); !ok {
			t.Fatalf("unexpected alert payload %T", msg)
		}
	default:
		t.Fatal("expected a capital alert on the bus")
	}
}

func TestInsufficientBalanceBlocksEntry(t *testing.T) {
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(string, float64) bool { return true },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	// Drain the paper account below the 500 allocation.
	f.sched.Gateway = exchange.NewPaperGateway(f.prices, f.db, "KRW", 400, 0, 0)

	alerts, unsub := f.sched.Bus.Subscribe(events.EventAlert, 10)
	defer unsub()

	stats := f.sched.RunCycle(context.Background())
	if f.store.Get("KRW-BTC") != nil {
		t.Fatal("entry should be blocked when the balance cannot cover the allocation")
	}
	if stats.Errors != 0 {
		t.Fatalf("a short balance is not an error, got %d errors", stats.Errors)
	}
	select {
	case <-alerts:
	default:
		t.Fatal("expected a balance alert on the bus")
	}
}

func TestInstrumentFailureIsolation(t *testing.T) {
	strat := &scriptStrategy{
		name:    "SCRIPT",
		enter:   func(string, float64) bool { return true },
		panicOn: "KRW-BAD",
	}
	f := newFixture(t, map[string]float64{"KRW-BAD": 50, "KRW-BTC": 100}, strat)

	stats := f.sched.RunCycle(context.Background())
	if stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", stats.Errors)
	}
	if stats.Processed != 2 {
		t.Fatalf("processed = %d, want 2", stats.Processed)
	}
	if f.store.Get("KRW-BTC") == nil {
		t.Fatal("healthy instrument should still trade")
	}
	if f.store.Get("KRW-BAD") != nil {
		t.Fatal("failed instrument must stay flat")
	}
}

func TestPriceFailureIsolation(t *testing.T) {
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(string, float64) bool { return true },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	// Second symbol with no quote available.
	f.sched.Instruments.Assignments["KRW-GONE"] = strat.name
	f.sched.Instruments.Capital["KRW-GONE"] = 500

	stats := f.sched.RunCycle(context.Background())
	if stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", stats.Errors)
	}
	if f.store.Get("KRW-BTC") == nil {
		t.Fatal("quoted instrument should still trade")
	}
}

func TestResumesPositionsAcrossRestart(t *testing.T) {
	strat := &scriptStrategy{
		name: "SCRIPT",
		exit: func(symbol string, price float64) bool { return price >= 110 },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	ctx := context.Background()

	// A position left over from a previous run.
	if err := f.store.Open(ctx, db.Position{
		Symbol: "KRW-BTC", EntryPrice: 90, Amount: 5, Strategy: strat.name,
	}); err != nil {
		t.Fatal(err)
	}

	// Fresh store over the same database, as after a restart.
	restarted := position.NewStore(f.db)
	if err := restarted.Load(ctx); err != nil {
		t.Fatal(err)
	}
	f.sched.Store = restarted

	f.prices["KRW-BTC"] = 110
	f.sched.RunCycle(ctx)
	if restarted.Get("KRW-BTC") != nil {
		t.Fatal("resumed position should be closed on exit signal")
	}
	logs, err := f.sched.Trades.Recent(ctx, "KRW-BTC", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || math.Abs(logs[0].PnL-100) > 1e-9 {
		t.Fatalf("exit pnl from resumed position = %+v", logs)
	}
}

type stoppedSignal struct{}

func (stoppedSignal) Stopped() bool { return true }

func TestRunHonorsStopBeforeFirstCycle(t *testing.T) {
	strat := &scriptStrategy{
		name:  "SCRIPT",
		enter: func(string, float64) bool { return true },
	}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	healthPath := filepath.Join(t.TempDir(), "health.json")
	f.sched.Health = lifecycle.NewHealthWriter(healthPath)
	f.sched.Stop = stoppedSignal{}
	f.sched.PollInterval = time.Millisecond

	f.sched.Run(context.Background())
	if f.store.Get("KRW-BTC") != nil {
		t.Fatal("no cycle should run once stop is requested")
	}

	data, err := os.ReadFile(healthPath)
	if err != nil {
		t.Fatalf("final health record missing: %v", err)
	}
	var st lifecycle.HealthStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	if st.State != "stopped" {
		t.Fatalf("final state = %q, want stopped", st.State)
	}
}

func TestRunWritesStoppedHealthOnPanic(t *testing.T) {
	strat := &scriptStrategy{name: "SCRIPT"}
	f := newFixture(t, map[string]float64{"KRW-BTC": 100}, strat)
	healthPath := filepath.Join(t.TempDir(), "health.json")
	f.sched.Health = lifecycle.NewHealthWriter(healthPath)
	f.sched.PollInterval = time.Millisecond
	// Break the loop itself, outside the per-instrument recovery.
	f.sched.Instruments = nil

	defer func() {
		if recover() == nil {
			t.Fatal("expected the broken loop to panic")
		}
		data, err := os.ReadFile(healthPath)
		if err != nil {
			t.Fatalf("final health record missing after panic: %v", err)
		}
		var st lifecycle.HealthStatus
		if err := json.Unmarshal(data, &st); err != nil {
			t.Fatal(err)
		}
		if st.State != "stopped" {
			t.Fatalf("final state = %q, want stopped", st.State)
		}
	}()
	f.sched.Run(context.Background())
}

func TestRoundAmountPrecision(t *testing.T) {
	if got := roundAmount(0.123456789, 6); math.Abs(got-0.123457) > 1e-12 {
		t.Errorf("got %v", got)
	}
	if got := roundAmount(10.0/3.0, 2); math.Abs(got-3.33) > 1e-12 {
		t.Errorf("got %v", got)
	}
}
