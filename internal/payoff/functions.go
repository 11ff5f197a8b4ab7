package payoff

import "math"

// funcSpec declares arity and typing for one whitelisted function.
// variadic functions accept minArgs or more; fixed-arity functions accept
// exactly minArgs. Only sequence-aware functions may receive the `path`
// variable as an argument.
type funcSpec struct {
	minArgs       int
	variadic      bool
	sequenceAware bool
	// scalar applies a fixed-arity scalar function. nil for the
	// sequence-aware reducers, which are dispatched specially.
	scalar func(args []float64) (float64, error)
}

// functions is the closed whitelist. Calls to any other name fail at parse
// time; nothing outside this table can execute.
var functions = map[string]funcSpec{
	// max and min mirror the original semantics: either a single sequence
	// argument (reduce over the trajectory) or two-plus scalars.
	"max": {minArgs: 1, variadic: true, sequenceAware: true},
	"min": {minArgs: 1, variadic: true, sequenceAware: true},

	"abs": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		return math.Abs(a[0]), nil
	}},
	"exp": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		return math.Exp(a[0]), nil
	}},
	"log": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		if a[0] <= 0 {
			return 0, &EvalError{Msg: "log of non-positive number"}
		}
		return math.Log(a[0]), nil
	}},
	"sqrt": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		if a[0] < 0 {
			return 0, &EvalError{Msg: "sqrt of negative number"}
		}
		return math.Sqrt(a[0]), nil
	}},
	"floor": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		return math.Floor(a[0]), nil
	}},
	"ceil": {minArgs: 1, scalar: func(a []float64) (float64, error) {
		return math.Ceil(a[0]), nil
	}},
	"pow": {minArgs: 2, scalar: func(a []float64) (float64, error) {
		r := math.Pow(a[0], a[1])
		if math.IsNaN(r) {
			return 0, &EvalError{Msg: "pow outside real domain"}
		}
		return r, nil
	}},
}

// Functions returns the names of the whitelisted functions, for display on
// the form page and in CLI help. The returned slice is a fresh copy.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}
