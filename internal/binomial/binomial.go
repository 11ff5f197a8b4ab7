// Package binomial implements the Cox-Ross-Rubinstein binomial tree for
// European and American options.
//
// The lattice uses up factor u = exp(sigma*sqrt(dt)), down factor d = 1/u,
// and risk-neutral up probability p = (exp((r-q)*dt) - d) / (u - d). Values
// are rolled back by discounted expectation, with an early-exercise check at
// each node for American options.
package binomial

import (
	"errors"
	"math"

	"github.com/atmx/pricing-engine/internal/model"
)

// Option types.
const (
	Call = "call"
	Put  = "put"
)

// ErrArbitrage is returned when the risk-neutral probability falls outside
// [0, 1]; the inputs admit arbitrage at this discretization.
var ErrArbitrage = errors.New("binomial: arbitrage detected, adjust steps, volatility, or rate")

// Parameters describes one binomial pricing request.
type Parameters struct {
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Maturity   float64 `json:"maturity"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
	Dividend   float64 `json:"dividend"` // continuous dividend yield
	Steps      int     `json:"steps"`
	Type       string  `json:"type"` // "call" or "put"
	American   bool    `json:"american"`
}

// Validate checks the lattice invariants.
func (p Parameters) Validate() error {
	if p.Spot <= 0 {
		return &model.InvalidParameterError{Field: "spot", Msg: "must be positive"}
	}
	if p.Strike <= 0 {
		return &model.InvalidParameterError{Field: "strike", Msg: "must be positive"}
	}
	if p.Maturity <= 0 {
		return &model.InvalidParameterError{Field: "maturity", Msg: "must be positive"}
	}
	if p.Volatility < 0 {
		return &model.InvalidParameterError{Field: "volatility", Msg: "must be non-negative"}
	}
	if p.Steps < 1 {
		return &model.InvalidParameterError{Field: "steps", Msg: "must be at least 1"}
	}
	if p.Type != Call && p.Type != Put {
		return &model.InvalidParameterError{Field: "type", Msg: "must be \"call\" or \"put\""}
	}
	return nil
}

// Result holds the price and the intermediate lattices. AssetPrices[i][j]
// is the underlying after i steps with j up-moves; OptionValues mirrors it.
type Result struct {
	Price        float64     `json:"price"`
	AssetPrices  [][]float64 `json:"asset_prices"`
	OptionValues [][]float64 `json:"option_values"`
}

// Price values the option on a CRR lattice.
func Price(p Parameters) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dt := p.Maturity / float64(p.Steps)
	up := math.Exp(p.Volatility * math.Sqrt(dt))
	down := 1 / up
	growth := math.Exp((p.Rate - p.Dividend) * dt)
	prob := (growth - down) / (up - down)

	// A zero-volatility lattice has u == d and prob is NaN or infinite;
	// the bounds check below rejects it along with genuine arbitrage.
	if !(prob >= 0 && prob <= 1) {
		return nil, ErrArbitrage
	}

	// Asset price lattice.
	assetPrices := make([][]float64, p.Steps+1)
	for step := 0; step <= p.Steps; step++ {
		level := make([]float64, step+1)
		for j := 0; j <= step; j++ {
			level[j] = p.Spot * math.Pow(up, float64(j)) * math.Pow(down, float64(step-j))
		}
		assetPrices[step] = level
	}

	// Terminal payoffs.
	optionValues := make([][]float64, p.Steps+1)
	terminal := make([]float64, p.Steps+1)
	for j, price := range assetPrices[p.Steps] {
		terminal[j] = intrinsic(p.Type, price, p.Strike)
	}
	optionValues[p.Steps] = terminal

	discount := math.Exp(-p.Rate * dt)

	// Backward induction.
	for step := p.Steps - 1; step >= 0; step-- {
		level := make([]float64, step+1)
		for j := 0; j <= step; j++ {
			continuation := discount * (prob*optionValues[step+1][j+1] + (1-prob)*optionValues[step+1][j])
			if p.American {
				if exercise := intrinsic(p.Type, assetPrices[step][j], p.Strike); exercise > continuation {
					continuation = exercise
				}
			}
			level[j] = continuation
		}
		optionValues[step] = level
	}

	return &Result{
		Price:        optionValues[0][0],
		AssetPrices:  assetPrices,
		OptionValues: optionValues,
	}, nil
}

func intrinsic(optionType string, price, strike float64) float64 {
	if optionType == Call {
		return math.Max(price-strike, 0)
	}
	return math.Max(strike-price, 0)
}
