package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
)

const calculatorSchema = `{
	"type": "object",
	"properties": {
		"expression": {
			"type": "string",
			"description": "The arithmetic expression to evaluate, e.g. '2 + 2 * 10'"
		}
	},
	"required": ["expression"]
}`

// Calculator evaluates arithmetic expressions: + - * / % ^, parentheses,
// and unary minus.
type Calculator struct {
	logger *observability.Logger
}

// NewCalculator creates the calculator tool.
func NewCalculator(logger *observability.Logger) *Calculator {
	return &Calculator{logger: logger}
}

func (c *Calculator) Name() string        { return "calculator" }
func (c *Calculator) Description() string { return "Can do calculations!" }

func (c *Calculator) Parameters() json.RawMessage { return json.RawMessage(calculatorSchema) }

func (c *Calculator) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        c.Name(),
		Description: "Perform mathematical calculations and evaluate expressions",
	}
}

func (c *Calculator) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	c.logger.Debug(ctx, "calculator invoked", "expression", in.Expression)

	result, err := evalExpression(in.Expression)
	if err != nil {
		return "", err
	}
	return formatNumber(result), nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// evalExpression parses and evaluates with a recursive descent grammar:
//
//	expr   = term   {("+" | "-") term}
//	term   = power  {("*" | "/" | "%") power}
//	power  = unary  ["^" power]
//	unary  = ["-"] atom
//	atom   = number | "(" expr ")"
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		case '%':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = math.Mod(v, rhs)
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, exp), nil
	}
	return v, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	switch ch := p.peek(); {
	case ch == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		start := p.pos
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if c >= '0' && c <= '9' || c == '.' {
				p.pos++
				continue
			}
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.input[start:p.pos]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
		}
		return v, nil
	case ch == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
	}
}
