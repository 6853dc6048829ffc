package settlements

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
)

// survivorFilter is a checked AIP-160 expression evaluated against survivors
// in memory. Strings compare case-insensitively; ":" on a string column is a
// substring match.
type survivorFilter struct {
	root *expr.Expr
}

func survivorDeclarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, c := range survivorColumns {
		typ := filtering.TypeInt
		if c.kind == kindString {
			typ = filtering.TypeString
		}
		opts = append(opts, filtering.DeclareIdent(c.key, typ))
	}
	return filtering.NewDeclarations(opts...)
}

// parseSurvivorFilter parses raw. An empty expression matches everything.
func parseSurvivorFilter(raw string) (survivorFilter, error) {
	if strings.TrimSpace(raw) == "" {
		return survivorFilter{}, nil
	}
	decls, err := survivorDeclarations()
	if err != nil {
		return survivorFilter{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(raw, decls)
	if err != nil {
		return survivorFilter{}, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return survivorFilter{}, nil
	}
	f := survivorFilter{root: parsed.CheckedExpr.GetExpr()}
	// Evaluate once against a zero survivor so unsupported constructs fail
	// at parse time instead of per row.
	if _, err := f.match(backend.Survivor{}); err != nil {
		return survivorFilter{}, err
	}
	return f, nil
}

func (f survivorFilter) apply(survivors []backend.Survivor) ([]backend.Survivor, error) {
	if f.root == nil {
		return survivors, nil
	}
	out := make([]backend.Survivor, 0, len(survivors))
	for _, s := range survivors {
		ok, err := f.match(s)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f survivorFilter) match(s backend.Survivor) (bool, error) {
	if f.root == nil {
		return true, nil
	}
	return evalBool(f.root, s)
}

func evalBool(e *expr.Expr, s backend.Survivor) (bool, error) {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return false, fmt.Errorf("expected condition, got %T", e.GetExprKind())
	}
	args := call.CallExpr.GetArgs()
	switch fn := call.CallExpr.GetFunction(); fn {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd:
		for _, arg := range args {
			ok, err := evalBool(arg, s)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case filtering.FunctionOr:
		for _, arg := range args {
			ok, err := evalBool(arg, s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case filtering.FunctionNot:
		if len(args) != 1 {
			return false, fmt.Errorf("NOT requires 1 argument")
		}
		ok, err := evalBool(args[0], s)
		return !ok, err
	case filtering.FunctionEquals, filtering.FunctionNotEquals,
		filtering.FunctionLessThan, filtering.FunctionLessEquals,
		filtering.FunctionGreaterThan, filtering.FunctionGreaterEquals,
		filtering.FunctionHas:
		if len(args) != 2 {
			return false, fmt.Errorf("%s requires 2 arguments", fn)
		}
		left, err := evalValue(args[0], s)
		if err != nil {
			return false, err
		}
		right, err := evalValue(args[1], s)
		if err != nil {
			return false, err
		}
		return compare(fn, left, right)
	default:
		return false, fmt.Errorf("unsupported function: %s", fn)
	}
}

func evalValue(e *expr.Expr, s backend.Survivor) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_IdentExpr:
		c, ok := columnsByKey[kind.IdentExpr.GetName()]
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", kind.IdentExpr.GetName())
		}
		return c.value(s), nil
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	default:
		return nil, fmt.Errorf("expected field or constant, got %T", kind)
	}
}

func compare(fn string, left, right any) (bool, error) {
	switch l := left.(type) {
	case int64:
		r, ok := right.(int64)
		if !ok {
			return false, fmt.Errorf("cannot compare number with %T", right)
		}
		return compareOrdered(fn, l, r)
	case string:
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare text with %T", right)
		}
		l, r = strings.ToLower(l), strings.ToLower(r)
		if fn == filtering.FunctionHas {
			return strings.Contains(l, r), nil
		}
		return compareOrdered(fn, l, r)
	default:
		return false, fmt.Errorf("unsupported value type: %T", left)
	}
}

func compareOrdered[T int64 | string](fn string, l, r T) (bool, error) {
	switch fn {
	case filtering.FunctionEquals, filtering.FunctionHas:
		return l == r, nil
	case filtering.FunctionNotEquals:
		return l != r, nil
	case filtering.FunctionLessThan:
		return l < r, nil
	case filtering.FunctionLessEquals:
		return l <= r, nil
	case filtering.FunctionGreaterThan:
		return l > r, nil
	case filtering.FunctionGreaterEquals:
		return l >= r, nil
	default:
		return false, fmt.Errorf("unsupported function: %s", fn)
	}
}
