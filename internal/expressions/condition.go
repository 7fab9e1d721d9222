package expressions

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// EvaluateCondition decides whether a rendered condition expression allows a
// step to run. Three tiers:
//
//  1. empty or whitespace-only -> true
//  2. literal keywords: true/1/yes -> true, false/0/no -> false
//  3. a restricted boolean expression with exactly one bound name (state)
//
// The expression grammar supports boolean/string/number literals,
// state["key"] and state.key lookups, comparison operators, and/or/not, and
// parentheses. Nothing else is reachable: no function calls, no identifiers
// besides state. Any lex, parse, or evaluation error yields false.
func EvaluateCondition(expression string, state map[string]any) bool {
	text := strings.TrimSpace(expression)
	if text == "" {
		return true
	}
	switch strings.ToLower(text) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}

	p := &condParser{tokens: lexCondition(text)}
	value, err := p.parseExpr()
	if err != nil {
		return false
	}
	if !p.atEnd() {
		return false
	}
	return truthy(value.eval(state))
}

// --- Lexer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokDot
	tokInvalid
)

type condToken struct {
	kind tokenKind
	text string
}

func lexCondition(input string) []condToken {
	var tokens []condToken
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, condToken{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, condToken{tokRParen, ")"})
			i++
		case c == '[':
			tokens = append(tokens, condToken{tokLBracket, "["})
			i++
		case c == ']':
			tokens = append(tokens, condToken{tokRBracket, "]"})
			i++
		case c == '.':
			tokens = append(tokens, condToken{tokDot, "."})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(input) && input[j] != quote {
				j++
			}
			if j >= len(input) {
				return append(tokens, condToken{tokInvalid, input[i:]})
			}
			tokens = append(tokens, condToken{tokString, input[i+1 : j]})
			i = j + 1
		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
				i++
			}
			if op == "=" || op == "!" {
				return append(tokens, condToken{tokInvalid, op})
			}
			tokens = append(tokens, condToken{tokOp, op})
			i++
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9':
			j := i + 1
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			tokens = append(tokens, condToken{tokNumber, input[i:j]})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(input) && isIdentPart(input[j]) {
				j++
			}
			tokens = append(tokens, condToken{tokIdent, input[i:j]})
			i = j
		default:
			return append(tokens, condToken{tokInvalid, string(c)})
		}
	}
	return tokens
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// --- Parser / AST ---

type condNode interface {
	eval(state map[string]any) any
}

type literalNode struct{ value any }

func (n literalNode) eval(map[string]any) any { return n.value }

type stateLookupNode struct{ key string }

func (n stateLookupNode) eval(state map[string]any) any { return state[n.key] }

type notNode struct{ operand condNode }

func (n notNode) eval(state map[string]any) any {
	v := n.operand.eval(state)
	if _, ok := v.(errValue); ok {
		return errValue{}
	}
	return !truthy(v)
}

type binaryNode struct {
	op          string
	left, right condNode
}

func (n binaryNode) eval(state map[string]any) any {
	switch n.op {
	case "and":
		lv := n.left.eval(state)
		if _, ok := lv.(errValue); ok {
			return errValue{}
		}
		if !truthy(lv) {
			return false
		}
		rv := n.right.eval(state)
		if _, ok := rv.(errValue); ok {
			return errValue{}
		}
		return truthy(rv)
	case "or":
		lv := n.left.eval(state)
		if _, ok := lv.(errValue); ok {
			return errValue{}
		}
		if truthy(lv) {
			return true
		}
		rv := n.right.eval(state)
		if _, ok := rv.(errValue); ok {
			return errValue{}
		}
		return truthy(rv)
	}
	return compare(n.op, n.left.eval(state), n.right.eval(state))
}

type errNode struct{}

func (errNode) eval(map[string]any) any { return errValue{} }

// errValue marks a failed comparison; it is falsy and poisons any expression
// containing it.
type errValue struct{}

type condParser struct {
	tokens []condToken
	pos    int
}

func (p *condParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *condParser) peek() (condToken, bool) {
	if p.atEnd() {
		return condToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *condParser) next() (condToken, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *condParser) parseExpr() (condNode, error) {
	return p.parseOr()
}

func (p *condParser) parseOr() (condNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokIdent || t.text != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "or", left: left, right: right}
	}
}

func (p *condParser) parseAnd() (condNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokIdent || t.text != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "and", left: left, right: right}
	}
}

func (p *condParser) parseUnary() (condNode, error) {
	if t, ok := p.peek(); ok && t.kind == tokIdent && t.text == "not" {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *condParser) parseComparison() (condNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return left, nil
	}
	p.pos++
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: t.text, left: left, right: right}, nil
}

func (p *condParser) parsePrimary() (condNode, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing, ok := p.next(); !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case tokString:
		return literalNode{value: t.text}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, err
		}
		return literalNode{value: f}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true", "yes":
			return literalNode{value: true}, nil
		case "false", "no":
			return literalNode{value: false}, nil
		case "none", "nil", "null":
			return literalNode{value: nil}, nil
		}
		if t.text == "state" {
			return p.parseStateLookup()
		}
		return nil, fmt.Errorf("unknown identifier %q", t.text)
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

// parseStateLookup handles state["key"] and state.key after the state
// identifier has been consumed.
func (p *condParser) parseStateLookup() (condNode, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("bare state reference")
	}
	switch t.kind {
	case tokLBracket:
		keyTok, ok := p.next()
		if !ok || keyTok.kind != tokString {
			return nil, fmt.Errorf("state index must be a quoted string")
		}
		if closing, ok := p.next(); !ok || closing.kind != tokRBracket {
			return nil, fmt.Errorf("missing closing bracket")
		}
		return stateLookupNode{key: keyTok.text}, nil
	case tokDot:
		keyTok, ok := p.next()
		if !ok || keyTok.kind != tokIdent {
			return nil, fmt.Errorf("state attribute must be an identifier")
		}
		return stateLookupNode{key: keyTok.text}, nil
	default:
		return nil, fmt.Errorf("unexpected token after state: %q", t.text)
	}
}

// --- Evaluation helpers ---

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case errValue:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

func compare(op string, left, right any) any {
	if _, ok := left.(errValue); ok {
		return errValue{}
	}
	if _, ok := right.(errValue); ok {
		return errValue{}
	}

	switch op {
	case "==":
		return looseEqual(left, right)
	case "!=":
		if eq, ok := looseEqual(left, right).(bool); ok {
			return !eq
		}
		return errValue{}
	}

	// Ordering: numbers with numbers, strings with strings. Anything else
	// (including nil operands) is an evaluation error and fails closed.
	ln, lok := asNumber(left)
	rn, rok := asNumber(right)
	if lok && rok {
		switch op {
		case "<":
			return ln < rn
		case "<=":
			return ln <= rn
		case ">":
			return ln > rn
		case ">=":
			return ln >= rn
		}
		return errValue{}
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		}
	}
	return errValue{}
}

// looseEqual compares numbers across numeric kinds and everything else by Go
// equality, guarded so uncomparable values (maps, slices saved into state by
// actions) are an evaluation error rather than a runtime panic.
func looseEqual(left, right any) any {
	if ln, ok := asNumber(left); ok {
		if rn, ok := asNumber(right); ok {
			return ln == rn
		}
		return false
	}
	if !comparableValue(left) || !comparableValue(right) {
		return errValue{}
	}
	return left == right
}

func comparableValue(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
