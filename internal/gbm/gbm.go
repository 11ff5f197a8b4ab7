// Package gbm simulates asset price trajectories under geometric Brownian
// motion.
//
// Each step advances the log-price exactly:
//
//	logS[i+1] = logS[i] + (r - sigma^2/2)*dt + sigma*sqrt(dt)*z
//
// with z a standard normal draw. The exact lognormal step (rather than a
// first-order Euler approximation) carries no discretization bias and is
// unconditionally stable for any steps >= 1. With sigma = 0 the trajectory
// collapses to the deterministic drift path.
//
// Randomness is always injected as a *rand.Rand handle; the package never
// touches global RNG state, so a seeded source replays bit-identically.
package gbm

import (
	"math"
	"math/rand"

	"github.com/atmx/pricing-engine/internal/model"
)

// Generator produces trajectories for one fixed parameter set. It is
// stateless apart from the precomputed step coefficients and safe for
// concurrent use; each caller supplies its own random source.
type Generator struct {
	spot      float64
	drift     float64 // (r - sigma^2/2) * dt
	diffusion float64 // sigma * sqrt(dt)
	steps     int
}

// New validates the discretization once and precomputes the step
// coefficients. dt must be positive.
func New(p model.SimulationParameters) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dt := p.Maturity / float64(p.Steps)
	return &Generator{
		spot:      p.Spot,
		drift:     (p.Rate - 0.5*p.Volatility*p.Volatility) * dt,
		diffusion: p.Volatility * math.Sqrt(dt),
		steps:     p.Steps,
	}, nil
}

// Generate simulates one trajectory of length steps+1. Index 0 is the spot
// price. Deterministic given a seeded rng.
func (g *Generator) Generate(rng *rand.Rand) model.Trajectory {
	prices := make(model.Trajectory, g.steps+1)
	prices[0] = g.spot

	logS := math.Log(g.spot)
	for i := 0; i < g.steps; i++ {
		logS += g.drift + g.diffusion*rng.NormFloat64()
		prices[i+1] = math.Exp(logS)
	}
	return prices
}
