package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/binance"
	"binance-backtest-go/internal/config"
	"binance-backtest-go/internal/database"
	"binance-backtest-go/internal/strategy"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// defaultLookbackDays backfills the start date when the request omits
// it, matching the dashboard's default range.
const defaultLookbackDays = 30

// Server exposes the backtest engine over HTTP.
type Server struct {
	server *http.Server
	client binance.RestClientInterface
	store  *database.Store // nil disables persistence
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates the API server. store may be nil when persistence
// is not configured.
func NewServer(cfg *config.Config, client binance.RestClientInterface, store *database.Store, logger *zap.Logger) *Server {
	s := &Server{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("api-server"),
		now:    time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/backtest", s.backtestHandler)
	mux.HandleFunc("/api/runs", s.runsHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// backtestRequest is the dashboard-facing request shape. Dates are
// calendar dates (yyyy-MM-dd); percentages are fractions.
type backtestRequest struct {
	Symbol         string   `json:"symbol"`
	Interval       string   `json:"interval"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	InitialBalance *float64 `json:"initial_balance"`
	RiskPerTrade   *float64 `json:"risk_per_trade"`
	StopLossPct    *float64 `json:"stop_loss_pct"`
	TakeProfitPct  *float64 `json:"take_profit_pct"`
	FeeRate        *float64 `json:"fee_rate"`
	MinConfidence  *float64 `json:"min_confidence"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) backtestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	cfg, err := s.buildConfig(req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	candles, err := s.client.GetKlines(r.Context(), cfg.Symbol, cfg.Interval, cfg.StartDate, cfg.EndDate.Add(24*time.Hour))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	sim := backtest.NewSimulator(cfg, strategy.NewIndicator(s.logger), s.logger)
	result, err := sim.Run(r.Context(), candles)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if s.store != nil {
		if _, err := s.store.SaveResult(result); err != nil {
			// The run itself succeeded; log and keep serving the result.
			s.logger.Error("Failed to persist backtest run", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, result)
}

// buildConfig merges the request with configured defaults and parses
// dates. Range validation is left to backtest.Config.Validate, which
// runs inside the simulator.
func (s *Server) buildConfig(req backtestRequest) (backtest.Config, error) {
	defaults := s.cfg.Backtest

	cfg := backtest.Config{
		Symbol:         req.Symbol,
		Interval:       req.Interval,
		InitialBalance: defaults.InitialBalance,
		RiskPerTrade:   defaults.RiskPerTrade,
		StopLossPct:    defaults.StopLossPct,
		TakeProfitPct:  defaults.TakeProfitPct,
		FeeRate:        defaults.FeeRate,
		MinConfidence:  defaults.MinConfidence,
	}
	if cfg.Interval == "" {
		cfg.Interval = defaults.Interval
	}
	if req.InitialBalance != nil {
		cfg.InitialBalance = *req.InitialBalance
	}
	if req.RiskPerTrade != nil {
		cfg.RiskPerTrade = *req.RiskPerTrade
	}
	if req.StopLossPct != nil {
		cfg.StopLossPct = *req.StopLossPct
	}
	if req.TakeProfitPct != nil {
		cfg.TakeProfitPct = *req.TakeProfitPct
	}
	if req.FeeRate != nil {
		cfg.FeeRate = *req.FeeRate
	}
	if req.MinConfidence != nil {
		cfg.MinConfidence = *req.MinConfidence
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	cfg.EndDate = today
	cfg.StartDate = today.AddDate(0, 0, -defaultLookbackDays)

	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return cfg, &backtest.InvalidConfigError{Field: "start_date", Value: req.StartDate, Reason: "want yyyy-MM-dd"}
		}
		cfg.StartDate = start
	}
	if req.EndDate != "" {
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return cfg, &backtest.InvalidConfigError{Field: "end_date", Value: req.EndDate, Reason: "want yyyy-MM-dd"}
		}
		cfg.EndDate = end
	}

	return cfg, cfg.Validate()
}

func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "persistence is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.RecentRuns(limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var invalidCfg *backtest.InvalidConfigError
	var insufficient *backtest.InsufficientDataError
	var signalErr *backtest.SignalSourceError

	switch {
	case errors.As(err, &invalidCfg):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &signalErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("Backtest failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
