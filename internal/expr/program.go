package expr

import (
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"hl7bridge/internal/fault"
)

// Input is the complete variable set an expression can read.
type Input struct {
	Value   string
	Message map[string]any
	Field   map[string]any
}

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	src string
	prg cel.Program
}

func (p *Program) String() string { return p.src }

// Eval runs the expression and returns a Go value: string, int64, uint64,
// float64, bool, time.Time, []any, map[string]any or nil.
func (p *Program) Eval(in Input) (any, error) {
	vars := map[string]any{
		"value":   in.Value,
		"message": nonNil(in.Message),
		"field":   nonNil(in.Field),
	}

	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return nil, fault.New(fault.ExpressionError, "evaluate %q: %v", p.src, err)
	}

	return native(out), nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func native(v ref.Val) any {
	switch t := v.(type) {
	case types.String:
		return string(t)
	case types.Int:
		return int64(t)
	case types.Uint:
		return uint64(t)
	case types.Double:
		return float64(t)
	case types.Bool:
		return bool(t)
	case types.Timestamp:
		return t.Time.UTC()
	case types.Duration:
		return time.Duration(t.Duration)
	case types.Null:
		return nil
	case traits.Mapper:
		out := map[string]any{}

		for it := t.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			if ks, ok := k.(types.String); ok {
				out[string(ks)] = native(t.Get(k))
			}
		}

		return out
	case traits.Lister:
		var out []any

		for it := t.Iterator(); it.HasNext() == types.True; {
			out = append(out, native(it.Next()))
		}

		return out
	default:
		return v.Value()
	}
}
