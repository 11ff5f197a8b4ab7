// Package payoff implements a sandboxed parser and evaluator for option
// payoff expressions.
//
// The grammar admits arithmetic (+ - * /), unary minus, comparisons,
// parentheses, numeric literals, the variables `price` (terminal price) and
// `path` (the full trajectory), and calls to a fixed whitelist of numeric
// functions. The parser builds a closed AST — a tagged-variant tree with a
// fixed node-kind set — and the evaluator dispatches only through the local
// function table, so no identifier or call outside the table can ever
// execute. Expression text from untrusted requests is never handed to a
// general-purpose evaluator.
//
// The AST is read-only after parsing and safe to share across concurrent
// evaluations with different environments.
package payoff

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a payoff expression AST node. The node-kind set is closed:
// Number, Variable, Unary, Binary, and Call are the only implementations.
type Node interface {
	// String renders the node as expression text that reparses to an
	// equivalent tree. Used for diagnostics and round-trip tests.
	String() string
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n *Number) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Variable is a reference to one of the two permitted identifiers,
// VarPrice or VarPath.
type Variable struct {
	Name string
}

// Permitted variable names.
const (
	VarPrice = "price"
	VarPath  = "path"
)

func (v *Variable) String() string {
	return v.Name
}

// Unary is a unary operation. Negation is the only unary operator.
type Unary struct {
	X Node
}

func (u *Unary) String() string {
	return "(-" + u.X.String() + ")"
}

// Binary operator kinds.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpText = map[BinaryOp]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
}

func (op BinaryOp) String() string {
	return binaryOpText[op]
}

// Binary is a binary operation over two scalar operands. Comparisons
// evaluate to 1 or 0.
type Binary struct {
	Op   BinaryOp
	X, Y Node
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.X.String(), b.Op, b.Y.String())
}

// Call is an invocation of a whitelisted function.
type Call struct {
	Func string
	Args []Node
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}
