// Package engine orchestrates Monte Carlo option price estimation: it drives
// trajectory generation across a worker pool, evaluates the payoff AST per
// trajectory, discounts to present value, and aggregates the estimate with
// its standard error.
//
// All state is request-scoped. The engine holds no locks or resources across
// a run and performs no logging; failures propagate unchanged to the caller.
package engine

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/atmx/pricing-engine/internal/gbm"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/payoff"
)

// DefaultSampleLimit bounds the diagnostic sample when the caller passes no
// explicit limit.
const DefaultSampleLimit = 5

// partial is one worker's accumulation. Sums are merged after the join;
// the reduction is associative and commutative, so merge order is free —
// workers are still reduced in index order for reproducibility.
type partial struct {
	sum   float64
	sumSq float64
}

// Estimate prices the payoff under the given parameters. The AST must come
// from payoff.Parse; it is shared read-only across all workers.
//
// The paths are split into contiguous blocks, one per worker. Worker w owns
// an independent random stream seeded with Seed + w, so results are
// reproducible for a fixed seed and worker count regardless of goroutine
// scheduling. Any evaluation error aborts the whole estimation; partial
// results are never returned.
func Estimate(p model.SimulationParameters, root payoff.Node, sampleLimit int) (*model.EstimationResult, error) {
	gen, err := gbm.New(p) // validates parameters once, up front
	if err != nil {
		return nil, err
	}

	workers := p.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > p.Paths {
		workers = p.Paths
	}

	if sampleLimit < 0 {
		sampleLimit = DefaultSampleLimit
	}
	limit := sampleLimit
	if limit > p.Paths {
		limit = p.Paths
	}

	discount := math.Exp(-p.Rate * p.Maturity)

	// Workers write by absolute path index, so no synchronization is needed
	// beyond the final join.
	sampleTrajs := make([]model.Trajectory, limit)
	samplePayoffs := make([]float64, limit)
	partials := make([]partial, workers)

	blockSize := p.Paths / workers
	remainder := p.Paths % workers

	var g errgroup.Group
	start := 0
	for w := 0; w < workers; w++ {
		size := blockSize
		if w < remainder {
			size++
		}
		w, blockStart, blockEnd := w, start, start+size
		start += size

		g.Go(func() error {
			rng := rand.New(rand.NewSource(p.Seed + int64(w)))
			var acc partial
			for i := blockStart; i < blockEnd; i++ {
				traj := gen.Generate(rng)
				v, err := payoff.Evaluate(root, payoff.Env{
					Price: traj.Terminal(),
					Path:  traj,
				})
				if err != nil {
					return err
				}
				discounted := v * discount
				acc.sum += discounted
				acc.sumSq += discounted * discounted
				if i < limit {
					sampleTrajs[i] = traj
					samplePayoffs[i] = discounted
				}
			}
			partials[w] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sum, sumSq float64
	for _, acc := range partials {
		sum += acc.sum
		sumSq += acc.sumSq
	}

	n := float64(p.Paths)
	estimate := sum / n

	// Standard error of the mean. Zero by convention for a single path;
	// the variance is clamped at zero to absorb floating-point cancellation.
	stdErr := 0.0
	if p.Paths > 1 {
		variance := sumSq/n - estimate*estimate
		if variance > 0 {
			stdErr = math.Sqrt(variance / n)
		}
	}

	trajs, payoffs := Sample(sampleTrajs, samplePayoffs, limit)

	return &model.EstimationResult{
		Price:              estimate,
		StandardError:      stdErr,
		SampleTrajectories: trajs,
		SamplePayoffs:      payoffs,
		Paths:              p.Paths,
		Steps:              p.Steps,
		Seed:               p.Seed,
		Workers:            workers,
	}, nil
}

// Sample selects the first min(limit, len) trajectories and their
// already-computed payoffs in generation order. Purely a truncating view:
// it never re-runs generation or evaluation.
func Sample(trajectories []model.Trajectory, payoffs []float64, limit int) ([]model.Trajectory, []float64) {
	if limit > len(trajectories) {
		limit = len(trajectories)
	}
	if limit > len(payoffs) {
		limit = len(payoffs)
	}
	if limit < 0 {
		limit = 0
	}
	return trajectories[:limit], payoffs[:limit]
}
