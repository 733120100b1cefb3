package pep508

import (
	"fmt"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Environment holds the PEP 508 marker variables for a Python environment,
// matching packaging.markers.default_environment().
type Environment struct {
	OSName                       string
	SysPlatform                  string
	PlatformMachine              string
	PlatformPythonImplementation string
	PlatformRelease              string
	PlatformSystem               string
	PlatformVersion              string
	PythonVersion                string
	PythonFullVersion            string
	ImplementationName           string
	ImplementationVersion        string
	Extra                        string
}

func (e Environment) value(name string) (string, bool) {
	switch name {
	case "os_name":
		return e.OSName, true
	case "sys_platform":
		return e.SysPlatform, true
	case "platform_machine":
		return e.PlatformMachine, true
	case "platform_python_implementation":
		return e.PlatformPythonImplementation, true
	case "platform_release":
		return e.PlatformRelease, true
	case "platform_system":
		return e.PlatformSystem, true
	case "platform_version":
		return e.PlatformVersion, true
	case "python_version":
		return e.PythonVersion, true
	case "python_full_version":
		return e.PythonFullVersion, true
	case "implementation_name":
		return e.ImplementationName, true
	case "implementation_version":
		return e.ImplementationVersion, true
	case "extra":
		return e.Extra, true
	}
	return "", false
}

func isMarkerVariable(name string) bool {
	_, ok := Environment{}.value(name)
	return ok
}

// Marker is a parsed PEP 508 environment marker expression.
type Marker struct {
	Raw  string
	root markerNode
}

// Evaluate reports whether the marker applies in the given environment.
func (m *Marker) Evaluate(env Environment) (bool, error) {
	return m.root.eval(env)
}

func (m *Marker) String() string {
	return m.Raw
}

type markerNode interface {
	eval(env Environment) (bool, error)
}

type orNode struct {
	left, right markerNode
}

func (n *orNode) eval(env Environment) (bool, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if left {
		return true, nil
	}
	return n.right.eval(env)
}

type andNode struct {
	left, right markerNode
}

func (n *andNode) eval(env Environment) (bool, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if !left {
		return false, nil
	}
	return n.right.eval(env)
}

type cmpNode struct {
	lhs, rhs operand
	op       string
}

func (n *cmpNode) eval(env Environment) (bool, error) {
	lhs, err := n.lhs.value(env)
	if err != nil {
		return false, err
	}
	rhs, err := n.rhs.value(env)
	if err != nil {
		return false, err
	}
	return compare(lhs, n.op, rhs)
}

type operand struct {
	variable string
	literal  string
	isVar    bool
}

func (o operand) value(env Environment) (string, error) {
	if !o.isVar {
		return o.literal, nil
	}
	v, ok := env.value(o.variable)
	if !ok {
		return "", fmt.Errorf("undefined marker variable %q", o.variable)
	}
	return v, nil
}

// compare mirrors packaging's _eval_op: try a PEP 440 specifier check
// first, then fall back to plain string comparison. `in` and `not in`
// use substring semantics.
func compare(lhs, op, rhs string) (bool, error) {
	switch op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	}

	if spec, err := pep440.NewSpecifiers(op + rhs); err == nil {
		if v, err := pep440.Parse(lhs); err == nil {
			return spec.Check(v), nil
		}
	}

	switch op {
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, fmt.Errorf("operator %q requires version operands", op)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	val  string
}

func lexMarker(input string) ([]token, error) {
	var toks []token
	pos := 0
	for pos < len(input) {
		c := input[pos]
		switch {
		case c == ' ' || c == '\t':
			pos++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, val: "("})
			pos++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, val: ")"})
			pos++
		case c == '\'' || c == '"':
			end := strings.IndexByte(input[pos+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, val: input[pos+1 : pos+1+end]})
			pos += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			start := pos
			for pos < len(input) && strings.ContainsRune("<>=!~", rune(input[pos])) {
				pos++
			}
			op := input[start:pos]
			switch op {
			case "<", "<=", "!=", "==", ">=", ">", "~=", "===":
			default:
				return nil, fmt.Errorf("invalid operator %q", op)
			}
			toks = append(toks, token{kind: tokOp, val: op})
		case isIdentStart(c):
			start := pos
			for pos < len(input) && isIdentChar(input[pos]) {
				pos++
			}
			toks = append(toks, token{kind: tokIdent, val: input[start:pos]})
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

type markerParser struct {
	toks []token
	pos  int
}

func parseMarker(text string) (*Marker, error) {
	toks, err := lexMarker(text)
	if err != nil {
		return nil, fmt.Errorf("invalid marker %q: %w", text, err)
	}
	p := &markerParser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("invalid marker %q: %w", text, err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("invalid marker %q: unexpected %q", text, p.peek().val)
	}
	return &Marker{Raw: text, root: root}, nil
}

func (p *markerParser) peek() token {
	return p.toks[p.pos]
}

func (p *markerParser) take() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *markerParser) parseOr() (markerNode, error) {
	node, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().val == "or" {
		p.take()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		node = &orNode{left: node, right: right}
	}
	return node, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().val == "and" {
		p.take()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		node = &andNode{left: node, right: right}
	}
	return node, nil
}

func (p *markerParser) parsePrimary() (markerNode, error) {
	if p.peek().kind == tokLParen {
		p.take()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.take().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return node, nil
	}

	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseCmpOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &cmpNode{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	t := p.take()
	switch t.kind {
	case tokString:
		return operand{literal: t.val}, nil
	case tokIdent:
		if !isMarkerVariable(t.val) {
			return operand{}, fmt.Errorf("undefined marker variable %q", t.val)
		}
		return operand{variable: t.val, isVar: true}, nil
	}
	return operand{}, fmt.Errorf("expected marker variable or string, got %q", t.val)
}

func (p *markerParser) parseCmpOp() (string, error) {
	t := p.take()
	switch {
	case t.kind == tokOp:
		return t.val, nil
	case t.kind == tokIdent && t.val == "in":
		return "in", nil
	case t.kind == tokIdent && t.val == "not":
		if next := p.take(); next.kind != tokIdent || next.val != "in" {
			return "", fmt.Errorf("expected 'in' after 'not'")
		}
		return "not in", nil
	}
	return "", fmt.Errorf("expected comparison operator, got %q", t.val)
}
