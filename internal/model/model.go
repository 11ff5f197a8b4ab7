// Package model defines the core domain types shared across the pricing engine.
// Simulation math runs on float64 throughout; reported monetary figures are
// rounded through shopspring/decimal at the service boundary, never here.
package model

import "fmt"

// Trajectory is one simulated price path over the discretized horizon.
// Index 0 is the spot price, index steps is the terminal price.
// Immutable once generated.
type Trajectory []float64

// Terminal returns the last price on the trajectory.
func (t Trajectory) Terminal() float64 {
	return t[len(t)-1]
}

// SimulationParameters describes one Monte Carlo pricing request.
type SimulationParameters struct {
	Spot       float64 `json:"spot"`       // S0, must be positive
	Maturity   float64 `json:"maturity"`   // T in years, must be positive
	Rate       float64 `json:"rate"`       // risk-free rate r
	Volatility float64 `json:"volatility"` // sigma, must be non-negative
	Steps      int     `json:"steps"`      // time steps per path, >= 1
	Paths      int     `json:"paths"`      // number of simulated paths, >= 1
	Payoff     string  `json:"payoff"`     // payoff expression text
	Seed       int64   `json:"seed"`       // base RNG seed
	Workers    int     `json:"workers"`    // worker goroutines; 0 = GOMAXPROCS
}

// InvalidParameterError reports a simulation parameter that fails validation.
// Detected once, before any simulation starts.
type InvalidParameterError struct {
	Field string
	Msg   string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("model: invalid parameter %s: %s", e.Field, e.Msg)
}

// Validate checks the numeric invariants. The payoff text is validated
// separately by the expression parser.
func (p SimulationParameters) Validate() error {
	if p.Spot <= 0 {
		return &InvalidParameterError{Field: "spot", Msg: "must be positive"}
	}
	if p.Maturity <= 0 {
		return &InvalidParameterError{Field: "maturity", Msg: "must be positive"}
	}
	if p.Volatility < 0 {
		return &InvalidParameterError{Field: "volatility", Msg: "must be non-negative"}
	}
	if p.Steps < 1 {
		return &InvalidParameterError{Field: "steps", Msg: "must be at least 1"}
	}
	if p.Paths < 1 {
		return &InvalidParameterError{Field: "paths", Msg: "must be at least 1"}
	}
	if p.Workers < 0 {
		return &InvalidParameterError{Field: "workers", Msg: "must be non-negative"}
	}
	return nil
}

// EstimationResult is the outcome of one Monte Carlo estimation.
// Created once at the end of estimation; immutable; owned by the caller.
type EstimationResult struct {
	Price              float64      `json:"price"`
	StandardError      float64      `json:"standard_error"`
	SampleTrajectories []Trajectory `json:"sample_trajectories"`
	SamplePayoffs      []float64    `json:"sample_payoffs"` // discounted, aligned with samples
	Paths              int          `json:"paths"`
	Steps              int          `json:"steps"`
	Seed               int64        `json:"seed"`
	Workers            int          `json:"workers"` // worker count actually used
}
