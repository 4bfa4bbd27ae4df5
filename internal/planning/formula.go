package planning

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

// ErrInvalidFormula is returned for a formula that cannot be evaluated.
var ErrInvalidFormula = errors.New("invalid formula")

// EvaluateFormula evaluates an arithmetic formula such as "75 * 29.3" and rounds
// the result to the nearest integer. Numbers, parentheses, unary minus and the
// four basic operators are supported.
func EvaluateFormula(formula string) (int64, error) {
	expr, err := parser.ParseExpr(formula)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormula, formula, err)
	}

	result, err := evaluate(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormula, formula, err)
	}
	if math.IsInf(result, 0) || math.IsNaN(result) || math.Abs(result) > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: %q: result out of range", ErrInvalidFormula, formula)
	}

	return int64(math.Round(result)), nil
}

func evaluate(expr ast.Expr) (float64, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return 0, fmt.Errorf("unexpected literal %s", e.Value)
		}
		return strconv.ParseFloat(e.Value, 64)

	case *ast.ParenExpr:
		return evaluate(e.X)

	case *ast.UnaryExpr:
		x, err := evaluate(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", e.Op)

	case *ast.BinaryExpr:
		x, err := evaluate(e.X)
		if err != nil {
			return 0, err
		}
		y, err := evaluate(e.Y)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, errors.New("division by zero")
			}
			return x / y, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", e.Op)
	}

	return 0, fmt.Errorf("unsupported expression %T", expr)
}
