package expr

import (
	"strings"
	"unicode/utf8"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"hl7bridge/internal/coerce"
)

// builtinNames are reserved and cannot be redefined by custom functions.
var builtinNames = map[string]bool{
	"parse_date":  true,
	"format_date": true,
	"age_years":   true,
	"coalesce":    true,
	"pad_left":    true,
}

// maxPadWidth bounds pad_left, whose work the cost limit does not see.
const maxPadWidth = 4096

// builtins is the fixed table of vetted functions every expression can call.
func builtins() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),

		cel.Function("parse_date",
			cel.Overload("parse_date_string_string",
				[]*cel.Type{cel.StringType, cel.StringType}, cel.TimestampType,
				cel.BinaryBinding(parseDate))),

		cel.Function("format_date",
			cel.Overload("format_date_timestamp_string",
				[]*cel.Type{cel.TimestampType, cel.StringType}, cel.StringType,
				cel.BinaryBinding(formatDate))),

		cel.Function("age_years",
			cel.Overload("age_years_timestamp_timestamp",
				[]*cel.Type{cel.TimestampType, cel.TimestampType}, cel.IntType,
				cel.BinaryBinding(ageYears))),

		cel.Function("coalesce",
			cel.Overload("coalesce_list",
				[]*cel.Type{cel.ListType(cel.DynType)}, cel.StringType,
				cel.UnaryBinding(coalesce))),

		cel.Function("pad_left",
			cel.Overload("pad_left_string_int_string",
				[]*cel.Type{cel.StringType, cel.IntType, cel.StringType}, cel.StringType,
				cel.FunctionBinding(padLeft))),
	}
}

func parseDate(value, pattern ref.Val) ref.Val {
	s, ok1 := value.(types.String)
	p, ok2 := pattern.(types.String)

	if !ok1 || !ok2 {
		return types.NewErr("parse_date: expected (string, string)")
	}

	pat, err := coerce.ParsePattern(string(p))
	if err != nil {
		return types.NewErr("parse_date: %v", err)
	}

	t, err := pat.Parse(strings.TrimSpace(string(s)))
	if err != nil {
		return types.NewErr("parse_date: %v", err)
	}

	return types.Timestamp{Time: t}
}

func formatDate(ts, pattern ref.Val) ref.Val {
	t, ok1 := ts.(types.Timestamp)
	p, ok2 := pattern.(types.String)

	if !ok1 || !ok2 {
		return types.NewErr("format_date: expected (timestamp, string)")
	}

	pat, err := coerce.ParsePattern(string(p))
	if err != nil {
		return types.NewErr("format_date: %v", err)
	}

	return types.String(pat.Format(t.Time))
}

func ageYears(born, at ref.Val) ref.Val {
	b, ok1 := born.(types.Timestamp)
	a, ok2 := at.(types.Timestamp)

	if !ok1 || !ok2 {
		return types.NewErr("age_years: expected (timestamp, timestamp)")
	}

	return types.Int(coerce.AgeYears(b.Time, a.Time))
}

// coalesce returns the first non-empty string in the list.
func coalesce(list ref.Val) ref.Val {
	l, ok := list.(traits.Lister)
	if !ok {
		return types.NewErr("coalesce: expected list")
	}

	for it := l.Iterator(); it.HasNext() == types.True; {
		item := it.Next()

		if item == types.NullValue {
			continue
		}

		s, ok := item.ConvertToType(types.StringType).(types.String)
		if ok && s != "" {
			return s
		}
	}

	return types.String("")
}

func padLeft(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.NewErr("pad_left: expected 3 arguments")
	}

	s, ok1 := args[0].(types.String)
	width, ok2 := args[1].(types.Int)
	pad, ok3 := args[2].(types.String)

	if !ok1 || !ok2 || !ok3 || pad == "" {
		return types.NewErr("pad_left: expected (string, int, non-empty string)")
	}

	if width > maxPadWidth {
		return types.NewErr("pad_left: width %d exceeds %d", int64(width), maxPadWidth)
	}

	missing := int(width) - utf8.RuneCountInString(string(s))
	if missing <= 0 {
		return s
	}

	padRunes := []rune(string(pad))
	fill := []rune(strings.Repeat(string(pad), (missing+len(padRunes)-1)/len(padRunes)))

	return types.String(string(fill[:missing]) + string(s))
}
