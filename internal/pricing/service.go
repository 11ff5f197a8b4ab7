// Package pricing provides the HTTP handlers for Monte Carlo and binomial
// option pricing, the browser form, real-time run broadcasts, and request
// rate limiting.
//
// The core packages (payoff, gbm, engine, binomial) do the numeric work and
// return structured failures; this layer owns transport, input bounds, error
// mapping, logging, and metrics. Reported price figures are rounded through
// shopspring/decimal at this boundary — floats for the transcendental math,
// decimals for reported money.
package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/pricing-engine/internal/binomial"
	"github.com/atmx/pricing-engine/internal/config"
	"github.com/atmx/pricing-engine/internal/engine"
	"github.com/atmx/pricing-engine/internal/metrics"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/payoff"
)

// PriceScale is the number of decimal places for reported prices.
const PriceScale int32 = 8

// Service handles pricing requests. Stateless between requests: every run is
// computed fresh and nothing is persisted.
type Service struct {
	sim config.SimulationConfig
	hub *WSHub // optional; nil disables broadcasts
}

// NewService creates a pricing service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(sim config.SimulationConfig, hub *WSHub) *Service {
	return &Service{sim: sim, hub: hub}
}

// --- Request/Response types ---

// PriceRequest is the JSON body for POST /api/v1/price.
type PriceRequest struct {
	Spot       float64 `json:"spot"`
	Maturity   float64 `json:"maturity"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
	Steps      int     `json:"steps"`
	Paths      int     `json:"paths"`
	Payoff     string  `json:"payoff"`
	Seed       *int64  `json:"seed,omitempty"` // omitted → server draws one
}

// PriceResponse is the JSON body returned from POST /api/v1/price. The seed
// and worker count are echoed so any run can be replayed bit-identically.
type PriceResponse struct {
	RunID              string             `json:"run_id"`
	Price              decimal.Decimal    `json:"price"`
	StandardError      decimal.Decimal    `json:"standard_error"`
	Seed               int64              `json:"seed"`
	Paths              int                `json:"paths"`
	Steps              int                `json:"steps"`
	Workers            int                `json:"workers"`
	ElapsedMs          int64              `json:"elapsed_ms"`
	SamplePayoffs      []float64          `json:"sample_payoffs"`
	SampleTrajectories []model.Trajectory `json:"sample_trajectories"`
}

// BinomialRequest is the JSON body for POST /api/v1/price/binomial.
type BinomialRequest struct {
	Spot           float64 `json:"spot"`
	Strike         float64 `json:"strike"`
	Maturity       float64 `json:"maturity"`
	Rate           float64 `json:"rate"`
	Volatility     float64 `json:"volatility"`
	Dividend       float64 `json:"dividend"`
	Steps          int     `json:"steps"`
	Type           string  `json:"type"`
	American       bool    `json:"american"`
	IncludeLattice bool    `json:"include_lattice"` // lattices are O(steps²); off by default
}

// BinomialResponse is the JSON body returned from POST /api/v1/price/binomial.
type BinomialResponse struct {
	RunID        string          `json:"run_id"`
	Price        decimal.Decimal `json:"price"`
	Steps        int             `json:"steps"`
	ElapsedMs    int64           `json:"elapsed_ms"`
	AssetPrices  [][]float64     `json:"asset_prices,omitempty"`
	OptionValues [][]float64     `json:"option_values,omitempty"`
}

// --- HTTP Handlers ---

// PriceMonteCarlo handles POST /api/v1/price.
func (s *Service) PriceMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.runMonteCarlo(req)
	if err != nil {
		writeCoreError(w, err, "monte_carlo")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// runMonteCarlo executes one Monte Carlo pricing run. Shared by the JSON
// endpoint and the browser form.
func (s *Service) runMonteCarlo(req PriceRequest) (*PriceResponse, error) {
	// Caller-side bounds: the engine has no internal cancellation, so the
	// request size is capped before it starts.
	if req.Paths > s.sim.MaxPaths {
		return nil, &model.InvalidParameterError{Field: "paths", Msg: "exceeds configured maximum"}
	}
	if req.Steps > s.sim.MaxSteps {
		return nil, &model.InvalidParameterError{Field: "steps", Msg: "exceeds configured maximum"}
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	params := model.SimulationParameters{
		Spot:       req.Spot,
		Maturity:   req.Maturity,
		Rate:       req.Rate,
		Volatility: req.Volatility,
		Steps:      req.Steps,
		Paths:      req.Paths,
		Payoff:     req.Payoff,
		Seed:       seed,
		Workers:    s.sim.Workers, // pinned so identical requests replay identically
	}

	start := time.Now()

	root, err := payoff.Parse(params.Payoff)
	if err != nil {
		return nil, err
	}
	result, err := engine.Estimate(params, root, s.sim.SampleLimit)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.RunsTotal.WithLabelValues("monte_carlo", "ok").Inc()
	metrics.RunDuration.WithLabelValues("monte_carlo").Observe(elapsed.Seconds())
	metrics.PathsSimulated.Add(float64(result.Paths))

	resp := &PriceResponse{
		RunID:              uuid.New().String(),
		Price:              decimal.NewFromFloat(result.Price).Round(PriceScale),
		StandardError:      decimal.NewFromFloat(result.StandardError).Round(PriceScale),
		Seed:               result.Seed,
		Paths:              result.Paths,
		Steps:              result.Steps,
		Workers:            result.Workers,
		ElapsedMs:          elapsed.Milliseconds(),
		SamplePayoffs:      result.SamplePayoffs,
		SampleTrajectories: result.SampleTrajectories,
	}

	slog.Info("pricing run completed",
		"run_id", resp.RunID,
		"method", "monte_carlo",
		"price", resp.Price.String(),
		"standard_error", resp.StandardError.String(),
		"paths", resp.Paths,
		"steps", resp.Steps,
		"seed", resp.Seed,
		"elapsed_ms", resp.ElapsedMs,
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:          "run_completed",
			RunID:         resp.RunID,
			Method:        "monte_carlo",
			Price:         resp.Price.String(),
			StandardError: resp.StandardError.String(),
			Paths:         resp.Paths,
			Steps:         resp.Steps,
			ElapsedMs:     resp.ElapsedMs,
		})
	}

	return resp, nil
}

// PriceBinomial handles POST /api/v1/price/binomial.
func (s *Service) PriceBinomial(w http.ResponseWriter, r *http.Request) {
	var req BinomialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Steps > s.sim.MaxTreeSteps {
		writeCoreError(w, &model.InvalidParameterError{Field: "steps", Msg: "exceeds configured maximum"}, "binomial")
		return
	}

	start := time.Now()
	result, err := binomial.Price(binomial.Parameters{
		Spot:       req.Spot,
		Strike:     req.Strike,
		Maturity:   req.Maturity,
		Rate:       req.Rate,
		Volatility: req.Volatility,
		Dividend:   req.Dividend,
		Steps:      req.Steps,
		Type:       req.Type,
		American:   req.American,
	})
	if err != nil {
		writeCoreError(w, err, "binomial")
		return
	}

	elapsed := time.Since(start)
	metrics.RunsTotal.WithLabelValues("binomial", "ok").Inc()
	metrics.RunDuration.WithLabelValues("binomial").Observe(elapsed.Seconds())

	resp := BinomialResponse{
		RunID:     uuid.New().String(),
		Price:     decimal.NewFromFloat(result.Price).Round(PriceScale),
		Steps:     req.Steps,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if req.IncludeLattice {
		resp.AssetPrices = result.AssetPrices
		resp.OptionValues = result.OptionValues
	}

	slog.Info("pricing run completed",
		"run_id", resp.RunID,
		"method", "binomial",
		"price", resp.Price.String(),
		"type", req.Type,
		"american", req.American,
		"steps", req.Steps,
		"elapsed_ms", resp.ElapsedMs,
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:      "run_completed",
			RunID:     resp.RunID,
			Method:    "binomial",
			Price:     resp.Price.String(),
			Steps:     req.Steps,
			ElapsedMs: resp.ElapsedMs,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Error mapping ---

// errorResponse is the structured failure body. Kind is one of
// "invalid_parameter", "parse_error", "eval_error", "internal"; Position is
// set for parse errors only.
type errorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Position *int   `json:"position,omitempty"`
}

// classify maps a core error to its kind, HTTP status, and parse position.
func classify(err error) (resp errorResponse, status int) {
	var parseErr *payoff.ParseError
	var evalErr *payoff.EvalError
	var paramErr *model.InvalidParameterError

	switch {
	case errors.As(err, &parseErr):
		pos := parseErr.Pos
		return errorResponse{Error: parseErr.Error(), Kind: "parse_error", Position: &pos}, http.StatusBadRequest
	case errors.As(err, &evalErr):
		return errorResponse{Error: evalErr.Error(), Kind: "eval_error"}, http.StatusBadRequest
	case errors.As(err, &paramErr):
		return errorResponse{Error: paramErr.Error(), Kind: "invalid_parameter"}, http.StatusBadRequest
	case errors.Is(err, binomial.ErrArbitrage):
		return errorResponse{Error: err.Error(), Kind: "invalid_parameter"}, http.StatusBadRequest
	default:
		return errorResponse{Error: "internal error", Kind: "internal"}, http.StatusInternalServerError
	}
}

// writeCoreError writes the structured failure and records the outcome metric.
func writeCoreError(w http.ResponseWriter, err error, method string) {
	resp, status := classify(err)
	metrics.RunsTotal.WithLabelValues(method, resp.Kind).Inc()
	if status == http.StatusInternalServerError {
		slog.Error("pricing run failed", "method", method, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a plain JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
