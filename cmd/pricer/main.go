// Command pricer is a one-shot command-line pricer. It prices a single
// option with either the Monte Carlo engine or the binomial tree and prints
// the result to stdout.
//
// Examples:
//
//	pricer -payoff "max(price - 100, 0)" -paths 100000 -seed 42
//	pricer -method binomial -strike 100 -type put -american
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/atmx/pricing-engine/internal/binomial"
	"github.com/atmx/pricing-engine/internal/engine"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/payoff"
)

func main() {
	method := flag.String("method", "montecarlo", `pricing method: "montecarlo" or "binomial"`)
	spot := flag.Float64("spot", 100, "initial asset price")
	maturity := flag.Float64("maturity", 1, "time to maturity in years")
	rate := flag.Float64("rate", 0.05, "risk-free interest rate")
	volatility := flag.Float64("volatility", 0.2, "asset volatility")
	steps := flag.Int("steps", 50, "time steps per path (or tree levels)")
	asJSON := flag.Bool("json", false, "print the full result as JSON")

	// Monte Carlo flags.
	paths := flag.Int("paths", 10000, "number of Monte Carlo paths")
	payoffText := flag.String("payoff", "", `payoff expression, e.g. "max(price - 100, 0)"`)
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	workers := flag.Int("workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	samples := flag.Int("samples", engine.DefaultSampleLimit, "sample trajectories to include")

	// Binomial flags.
	strike := flag.Float64("strike", 100, "strike price (binomial)")
	optType := flag.String("type", "call", `option type: "call" or "put" (binomial)`)
	american := flag.Bool("american", false, "price as American option (binomial)")
	dividend := flag.Float64("dividend", 0, "continuous dividend yield (binomial)")

	flag.Parse()

	switch *method {
	case "montecarlo":
		if *payoffText == "" {
			fail("the -payoff flag is required for Monte Carlo pricing")
		}
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}

		root, err := payoff.Parse(*payoffText)
		if err != nil {
			fail(err.Error())
		}

		result, err := engine.Estimate(model.SimulationParameters{
			Spot:       *spot,
			Maturity:   *maturity,
			Rate:       *rate,
			Volatility: *volatility,
			Steps:      *steps,
			Paths:      *paths,
			Payoff:     *payoffText,
			Seed:       *seed,
			Workers:    *workers,
		}, root, *samples)
		if err != nil {
			fail(err.Error())
		}

		if *asJSON {
			printJSON(result)
			return
		}
		fmt.Printf("Estimated option price: %.6f (standard error %.6f, seed %d)\n",
			result.Price, result.StandardError, result.Seed)

	case "binomial":
		result, err := binomial.Price(binomial.Parameters{
			Spot:       *spot,
			Strike:     *strike,
			Maturity:   *maturity,
			Rate:       *rate,
			Volatility: *volatility,
			Dividend:   *dividend,
			Steps:      *steps,
			Type:       *optType,
			American:   *american,
		})
		if err != nil {
			fail(err.Error())
		}

		if *asJSON {
			printJSON(result)
			return
		}
		style := "European"
		if *american {
			style = "American"
		}
		fmt.Printf("%s %s price: %.6f\n", style, *optType, result.Price)

	default:
		fail(fmt.Sprintf("unknown method %q", *method))
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "pricer:", msg)
	os.Exit(1)
}
