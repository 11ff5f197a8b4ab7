package payoff

import (
	"fmt"
	"strconv"
)

// ParseError reports malformed payoff expression text together with the
// byte offset of the offending token.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("payoff: parse error at position %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokEq // ==
	tokNe // !=
	tokLt // <
	tokLe // <=
	tokGt // >
	tokGe // >=
)

type token struct {
	kind tokenKind
	pos  int
	text string
	val  float64 // set for tokNumber
}

// lex scans the whole expression into tokens, ending with tokEOF.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			// Scientific notation: 1e-5, 2.5E+3.
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && input[j] >= '0' && input[j] <= '9' {
					i = j
					for i < len(input) && input[i] >= '0' && input[i] <= '9' {
						i++
					}
				}
			}
			text := input[start:i]
			val, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNumber, pos: start, text: text, val: val})

		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			start := i
			for i < len(input) && (input[i] >= 'a' && input[i] <= 'z' ||
				input[i] >= 'A' && input[i] <= 'Z' ||
				input[i] >= '0' && input[i] <= '9' || input[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, pos: start, text: input[start:i]})

		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i, text: ")"})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, pos: i, text: ","})
			i++
		case c == '+':
			toks = append(toks, token{kind: tokPlus, pos: i, text: "+"})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokMinus, pos: i, text: "-"})
			i++
		case c == '*':
			toks = append(toks, token{kind: tokStar, pos: i, text: "*"})
			i++
		case c == '/':
			toks = append(toks, token{kind: tokSlash, pos: i, text: "/"})
			i++

		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokEq, pos: i, text: "=="})
				i += 2
			} else {
				return nil, &ParseError{Pos: i, Msg: "unknown token \"=\" (did you mean \"==\"?)"}
			}
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokNe, pos: i, text: "!="})
				i += 2
			} else {
				return nil, &ParseError{Pos: i, Msg: "unknown token \"!\""}
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokLe, pos: i, text: "<="})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLt, pos: i, text: "<"})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokGe, pos: i, text: ">="})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGt, pos: i, text: ">"})
				i++
			}

		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unknown token %q", string(c))}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input), text: ""})
	return toks, nil
}
