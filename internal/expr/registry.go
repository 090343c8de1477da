// Package expr evaluates computed-field expressions. Expressions are written
// in CEL, a closed, side-effect-free language: they see the raw value, the
// current message, the rule's own configuration and a fixed function table,
// and nothing else.
package expr

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"hl7bridge/internal/fault"
)

// DefaultCostLimit bounds the work a single evaluation may do.
const DefaultCostLimit uint64 = 1_000_000

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved names cannot be used as function or parameter names.
var reserved = map[string]bool{"value": true, "message": true, "field": true}

// Function is a named expression over declared parameters.
type Function struct {
	Name        string
	Params      []string
	Expression  string
	Description string
}

// Registry holds the compiled function table and the environment that
// rule expressions are compiled against. It is read-only once built.
type Registry struct {
	env       *cel.Env
	functions []string
	costLimit uint64
}

// NewRegistry compiles the custom functions in declaration order. A function
// can call the built-ins and any function declared before it.
func NewRegistry(functions []Function) (*Registry, error) {
	base := builtins()
	declared := make([]cel.EnvOption, 0, len(functions))
	seen := make(map[string]bool, len(functions))

	var names []string

	for _, fn := range functions {
		if err := checkFunction(fn, seen); err != nil {
			return nil, err
		}

		decl, err := compileFunction(fn, append(append([]cel.EnvOption{}, base...), declared...))
		if err != nil {
			return nil, err
		}

		declared = append(declared, decl)
		seen[fn.Name] = true
		names = append(names, fn.Name)
	}

	opts := append(append([]cel.EnvOption{}, base...), declared...)
	opts = append(opts,
		cel.Variable("value", cel.StringType),
		cel.Variable("message", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("field", cel.MapType(cel.StringType, cel.DynType)),
	)

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fault.New(fault.ExpressionError, "build expression environment: %v", err)
	}

	return &Registry{env: env, functions: names, costLimit: DefaultCostLimit}, nil
}

// Functions returns the custom function names in declaration order.
func (r *Registry) Functions() []string {
	return append([]string(nil), r.functions...)
}

// Compile type-checks src against the registry. Unknown functions and arity
// mismatches are reported here, never at evaluation time.
func (r *Registry) Compile(src string) (*Program, error) {
	ast, iss := r.env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fault.New(fault.ExpressionError, "compile %q: %v", src, iss.Err())
	}

	prg, err := r.env.Program(ast, cel.CostLimit(r.costLimit))
	if err != nil {
		return nil, fault.New(fault.ExpressionError, "plan %q: %v", src, err)
	}

	return &Program{src: src, prg: prg}, nil
}

func checkFunction(fn Function, seen map[string]bool) error {
	switch {
	case !identRe.MatchString(fn.Name):
		return fault.New(fault.ExpressionError, "invalid function name %q", fn.Name)
	case builtinNames[fn.Name] || reserved[fn.Name]:
		return fault.New(fault.ExpressionError, "function %q shadows a built-in", fn.Name)
	case seen[fn.Name]:
		return fault.New(fault.ExpressionError, "function %q declared twice", fn.Name)
	case fn.Expression == "":
		return fault.New(fault.ExpressionError, "function %q has no expression", fn.Name)
	}

	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if !identRe.MatchString(p) || reserved[p] {
			return fault.New(fault.ExpressionError, "function %q: invalid parameter %q", fn.Name, p)
		}

		if params[p] {
			return fault.New(fault.ExpressionError, "function %q: duplicate parameter %q", fn.Name, p)
		}

		params[p] = true
	}

	return nil
}

// compileFunction compiles fn's body against env options visible to it and
// returns the declaration that makes fn callable from later expressions.
func compileFunction(fn Function, visible []cel.EnvOption) (cel.EnvOption, error) {
	opts := append([]cel.EnvOption{}, visible...)
	for _, p := range fn.Params {
		opts = append(opts, cel.Variable(p, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fault.New(fault.ExpressionError, "function %q: %v", fn.Name, err)
	}

	ast, iss := env.Compile(fn.Expression)
	if iss != nil && iss.Err() != nil {
		return nil, fault.New(fault.ExpressionError, "function %q: %v", fn.Name, iss.Err())
	}

	prg, err := env.Program(ast, cel.CostLimit(DefaultCostLimit))
	if err != nil {
		return nil, fault.New(fault.ExpressionError, "function %q: %v", fn.Name, err)
	}

	call := func(args ...ref.Val) ref.Val {
		act := make(map[string]any, len(fn.Params))
		for i, p := range fn.Params {
			act[p] = args[i]
		}

		out, _, err := prg.Eval(act)
		if err != nil {
			return types.NewErr("%s: %v", fn.Name, err)
		}

		return out
	}

	argTypes := make([]*cel.Type, len(fn.Params))
	for i := range argTypes {
		argTypes[i] = cel.DynType
	}

	var binding cel.OverloadOpt

	switch len(fn.Params) {
	case 1:
		binding = cel.UnaryBinding(func(a ref.Val) ref.Val { return call(a) })
	case 2:
		binding = cel.BinaryBinding(func(a, b ref.Val) ref.Val { return call(a, b) })
	default:
		binding = cel.FunctionBinding(call)
	}

	id := fmt.Sprintf("custom_%s_%d", fn.Name, len(fn.Params))

	return cel.Function(fn.Name, cel.Overload(id, argTypes, cel.DynType, binding)), nil
}
