package payoff

import (
	"fmt"
	"math"

	"github.com/atmx/pricing-engine/internal/model"
)

// EvalError reports a type mismatch or numeric domain violation hit while
// evaluating a payoff for one trajectory. It aborts the whole estimation:
// a formula that fails on any path is a caller-input defect, and silently
// dropping paths would bias the estimate.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string {
	return "payoff: evaluation error: " + e.Msg
}

// Env binds the two permitted variables for one trajectory. Transient,
// discarded after each evaluation.
type Env struct {
	Price float64          // terminal price
	Path  model.Trajectory // full trajectory
}

// value is the tagged Scalar | Sequence union flowing through evaluation.
// The typing discipline is enforced at operator and call dispatch, not
// duck-typed at runtime.
type value struct {
	num   float64
	seq   model.Trajectory
	isSeq bool
}

func scalar(f float64) value {
	return value{num: f}
}

// Evaluate interprets the AST against env and returns the scalar payoff.
// It is a pure recursive descent with no shared mutable state: a single
// parsed AST is safe to evaluate concurrently under different environments.
func Evaluate(root Node, env Env) (float64, error) {
	v, err := eval(root, env)
	if err != nil {
		return 0, err
	}
	if v.isSeq {
		return 0, &EvalError{Msg: "payoff must evaluate to a scalar, got the full path"}
	}
	return v.num, nil
}

func eval(n Node, env Env) (value, error) {
	switch n := n.(type) {
	case *Number:
		return scalar(n.Value), nil

	case *Variable:
		if n.Name == VarPath {
			return value{seq: env.Path, isSeq: true}, nil
		}
		return scalar(env.Price), nil

	case *Unary:
		x, err := evalScalar(n.X, env, "unary -")
		if err != nil {
			return value{}, err
		}
		return scalar(-x), nil

	case *Binary:
		x, err := evalScalar(n.X, env, n.Op.String())
		if err != nil {
			return value{}, err
		}
		y, err := evalScalar(n.Y, env, n.Op.String())
		if err != nil {
			return value{}, err
		}
		return applyBinary(n.Op, x, y)

	case *Call:
		return evalCall(n, env)

	default:
		// Unreachable: the node-kind set is closed.
		return value{}, &EvalError{Msg: fmt.Sprintf("unsupported node %T", n)}
	}
}

// evalScalar evaluates n and requires a scalar result. Arithmetic and
// comparison operators never accept the path sequence directly.
func evalScalar(n Node, env Env, op string) (float64, error) {
	v, err := eval(n, env)
	if err != nil {
		return 0, err
	}
	if v.isSeq {
		return 0, &EvalError{Msg: "non-scalar operand to " + op}
	}
	return v.num, nil
}

func applyBinary(op BinaryOp, x, y float64) (value, error) {
	switch op {
	case OpAdd:
		return scalar(x + y), nil
	case OpSub:
		return scalar(x - y), nil
	case OpMul:
		return scalar(x * y), nil
	case OpDiv:
		if y == 0 {
			return value{}, &EvalError{Msg: "division by zero"}
		}
		return scalar(x / y), nil
	case OpEq:
		return scalar(boolToFloat(x == y)), nil
	case OpNe:
		return scalar(boolToFloat(x != y)), nil
	case OpLt:
		return scalar(boolToFloat(x < y)), nil
	case OpLe:
		return scalar(boolToFloat(x <= y)), nil
	case OpGt:
		return scalar(boolToFloat(x > y)), nil
	default:
		return scalar(boolToFloat(x >= y)), nil
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func evalCall(c *Call, env Env) (value, error) {
	spec := functions[c.Func] // presence guaranteed by the parser

	args := make([]value, len(c.Args))
	for i, a := range c.Args {
		v, err := eval(a, env)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}

	if spec.sequenceAware {
		return reduceCall(c.Func, args)
	}

	// Scalar-only function: reject sequences, then apply.
	flat := make([]float64, len(args))
	for i, v := range args {
		if v.isSeq {
			return value{}, &EvalError{Msg: c.Func + " expects a scalar argument, got the full path"}
		}
		flat[i] = v.num
	}
	r, err := spec.scalar(flat)
	if err != nil {
		return value{}, err
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return value{}, &EvalError{Msg: "numeric overflow in " + c.Func}
	}
	return scalar(r), nil
}

// reduceCall dispatches max/min: a single sequence argument reduces over the
// trajectory; otherwise all arguments must be scalars and at least two are
// required, mirroring the two-form builtin the grammar is modeled on.
func reduceCall(name string, args []value) (value, error) {
	var xs []float64
	switch {
	case len(args) == 1 && args[0].isSeq:
		if len(args[0].seq) == 0 {
			return value{}, &EvalError{Msg: name + " of empty sequence"}
		}
		xs = args[0].seq

	case len(args) == 1:
		return value{}, &EvalError{Msg: name + " with one argument expects a sequence, got a scalar"}

	default:
		xs = make([]float64, len(args))
		for i, v := range args {
			if v.isSeq {
				return value{}, &EvalError{Msg: name + " over mixed scalar and sequence arguments"}
			}
			xs[i] = v.num
		}
	}

	best := xs[0]
	for _, x := range xs[1:] {
		if name == "max" && x > best || name == "min" && x < best {
			best = x
		}
	}
	return scalar(best), nil
}
