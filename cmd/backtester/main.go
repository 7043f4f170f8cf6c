package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/binance"
	"binance-backtest-go/internal/config"
	"binance-backtest-go/internal/database"
	"binance-backtest-go/internal/logger"
	"binance-backtest-go/internal/strategy"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type runOutcome struct {
	symbol string
	result *backtest.Result
	err    error
}

func main() {
	var (
		configPath = flag.String("config", "./configs", "path to the config directory")
		symbols    = flag.String("symbols", "BTCUSDT", "comma-separated symbols to backtest")
		interval   = flag.String("interval", "", "kline interval (defaults to config)")
		start      = flag.String("start", "", "start date yyyy-MM-dd (defaults to 30 days ago)")
		end        = flag.String("end", "", "end date yyyy-MM-dd (defaults to today)")
		balance    = flag.Float64("balance", 0, "initial balance (defaults to config)")
		risk       = flag.Float64("risk", 0, "risk per trade as a fraction (defaults to config)")
		stopLoss   = flag.Float64("stop-loss", 0, "stop-loss fraction (defaults to config)")
		takeProfit = flag.Float64("take-profit", 0, "take-profit fraction (defaults to config)")
		save       = flag.Bool("save", false, "persist results to the configured database")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	var store *database.Store
	if *save {
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		store = database.NewStore(db, log)
	}

	restClient := binance.NewRestClient(&cfg.Binance, log)
	if _, err := restClient.GetServerTime(); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	base, err := baseConfig(&cfg, *interval, *start, *end, *balance, *risk, *stopLoss, *takeProfit)
	if err != nil {
		log.Fatal("Invalid run parameters", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Independent runs share no mutable state, so each symbol gets its
	// own goroutine with its own simulator.
	symbolList := splitSymbols(*symbols)
	outcomes := make(chan runOutcome, len(symbolList))
	var wg sync.WaitGroup

	for _, symbol := range symbolList {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			runCfg := base
			runCfg.Symbol = symbol
			result, err := runOne(ctx, runCfg, restClient, log)
			outcomes <- runOutcome{symbol: symbol, result: result, err: err}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	failed := 0
	for out := range outcomes {
		if out.err != nil {
			log.Error("Backtest failed", zap.String("symbol", out.symbol), zap.Error(out.err))
			failed++
			continue
		}
		printReport(out.result)
		if store != nil {
			if _, err := store.SaveResult(out.result); err != nil {
				log.Error("Failed to persist result", zap.String("symbol", out.symbol), zap.Error(err))
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runOne(ctx context.Context, cfg backtest.Config, client binance.RestClientInterface, log *zap.Logger) (*backtest.Result, error) {
	candles, err := client.GetKlines(ctx, cfg.Symbol, cfg.Interval, cfg.StartDate, cfg.EndDate.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	sim := backtest.NewSimulator(cfg, strategy.NewIndicator(log), log)
	return sim.Run(ctx, candles)
}

// baseConfig merges flags over the configured defaults. Symbol is
// filled per run.
func baseConfig(cfg *config.Config, interval, start, end string, balance, risk, stopLoss, takeProfit float64) (backtest.Config, error) {
	base := backtest.Config{
		Interval:       cfg.Backtest.Interval,
		InitialBalance: cfg.Backtest.InitialBalance,
		RiskPerTrade:   cfg.Backtest.RiskPerTrade,
		StopLossPct:    cfg.Backtest.StopLossPct,
		TakeProfitPct:  cfg.Backtest.TakeProfitPct,
		FeeRate:        cfg.Backtest.FeeRate,
		MinConfidence:  cfg.Backtest.MinConfidence,
	}
	if interval != "" {
		base.Interval = interval
	}
	if balance > 0 {
		base.InitialBalance = balance
	}
	if risk > 0 {
		base.RiskPerTrade = risk
	}
	if stopLoss > 0 {
		base.StopLossPct = stopLoss
	}
	if takeProfit > 0 {
		base.TakeProfitPct = takeProfit
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	base.EndDate = today
	base.StartDate = today.AddDate(0, 0, -30)

	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return base, fmt.Errorf("invalid -start date %q: %w", start, err)
		}
		base.StartDate = t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return base, fmt.Errorf("invalid -end date %q: %w", end, err)
		}
		base.EndDate = t
	}
	return base, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func printReport(r *backtest.Result) {
	fmt.Printf("\n=== %s %s  %s -> %s ===\n",
		r.Config.Symbol, r.Config.Interval,
		r.Config.StartDate.Format(dateLayout), r.Config.EndDate.Format(dateLayout))
	fmt.Printf("Initial balance: %12.2f\n", r.InitialBalance)
	fmt.Printf("Final balance:   %12.2f\n", r.FinalBalance)
	fmt.Printf("Profit/loss:     %12.2f (%.2f%%)\n", r.ProfitLoss, r.ProfitLossPct*100)
	fmt.Printf("Trades:          %d (win rate %.1f%%)\n", r.Metrics.TotalTrades, r.Metrics.WinRate*100)
	fmt.Printf("Max drawdown:    %.2f%%\n", r.Metrics.MaxDrawdown*100)
	if r.Metrics.ProfitFactor != nil {
		fmt.Printf("Profit factor:   %.2f\n", *r.Metrics.ProfitFactor)
	} else {
		fmt.Printf("Profit factor:   N/A\n")
	}
	if r.Metrics.SharpeRatio != nil {
		fmt.Printf("Sharpe ratio:    %.2f\n", *r.Metrics.SharpeRatio)
	} else {
		fmt.Printf("Sharpe ratio:    N/A\n")
	}
}
