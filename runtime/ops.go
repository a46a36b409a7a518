package runtime

import "reflect"

// Ops backs the binary operators of generated code. Generated expressions
// carry no static type information about context struct fields beyond what
// the Go compiler already enforces at the call site, so these operate on
// `any` and coerce permissively via reflect rather than returning an error:
// a non-numeric operand to an arithmetic operator yields the zero value
// instead of failing the render. Equality and ordering fall back to
// reflect.DeepEqual / string comparison when both operands aren't numeric.

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), true
	default:
		return 0, false
	}
}

// Add implements `+`, with string concatenation taking priority over numeric
// addition so `name + "!"`-style templates translate naturally.
func Add(a, b any) any {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa + sb
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa + fb
		}
	}
	return nil
}

func Sub(a, b any) any {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	if !oka || !okb {
		return nil
	}
	return fa - fb
}

func Mul(a, b any) any {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	if !oka || !okb {
		return nil
	}
	return fa * fb
}

func Div(a, b any) any {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	if !oka || !okb || fb == 0 {
		return nil
	}
	return fa / fb
}

func Mod(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb || ib == 0 {
		return nil
	}
	return ia % ib
}

func Shl(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb {
		return nil
	}
	return ia << uint(ib)
}

func Shr(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb {
		return nil
	}
	return ia >> uint(ib)
}

func BitAnd(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb {
		return nil
	}
	return ia & ib
}

func BitOr(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb {
		return nil
	}
	return ia | ib
}

func BitXor(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if !oka || !okb {
		return nil
	}
	return ia ^ ib
}

// Eq implements `==`: numeric operands compare by value across differing
// concrete types (int vs float64), everything else falls back to
// reflect.DeepEqual.
func Eq(a, b any) bool {
	if fa, oka := toFloat(a); oka {
		if fb, okb := toFloat(b); okb {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func Ne(a, b any) bool { return !Eq(a, b) }

func cmp(a, b any) (int, bool) {
	if fa, oka := toFloat(a); oka {
		if fb, okb := toFloat(b); okb {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if sa, oka := a.(string); oka {
		if sb, okb := b.(string); okb {
			switch {
			case sa < sb:
				return -1, true
			case sa > sb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

func Lt(a, b any) bool { c, ok := cmp(a, b); return ok && c < 0 }
func Le(a, b any) bool { c, ok := cmp(a, b); return ok && c <= 0 }
func Gt(a, b any) bool { c, ok := cmp(a, b); return ok && c > 0 }
func Ge(a, b any) bool { c, ok := cmp(a, b); return ok && c >= 0 }

// TruthyOrFalse is Truthy with type-mismatch errors folded into false,
// used by LogicalAnd/LogicalOr which have no error return to surface them
// through.
func TruthyOrFalse(v any) bool {
	b, err := Truthy(v)
	if err != nil {
		return false
	}
	return b
}

// LogicalAnd and LogicalOr implement `&&`/`||` over truthy-coerced operands.
// Both operands are always evaluated to build the Go expression passed in,
// so short-circuiting only happens inside these functions, not around any
// side effect in the unevaluated branch's source text — templates are
// assumed side-effect-free in their expression grammar, so this does not
// change observable behavior.
func LogicalAnd(a, b any) bool { return TruthyOrFalse(a) && TruthyOrFalse(b) }
func LogicalOr(a, b any) bool  { return TruthyOrFalse(a) || TruthyOrFalse(b) }
