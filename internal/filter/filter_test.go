package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
)

var now = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func lookupOf(m map[string][]string) Lookup {
	return func(field string) []string { return m[field] }
}

func TestCondition_Eval(t *testing.T) {
	data := lookupOf(map[string][]string{
		"OBX.3.1": {"8867-4"},
		"PID.8":   {"19800101"},
		"PID.8b":  {"not-a-date"},
		"PV1.2":   {"I"},
		"OBX.5":   {"72"},
		"NAME":    {"DOE", "SMITH"},
	})

	tests := []struct {
		name string
		def  Definition
		want bool
	}{
		{"equals", Definition{Field: "PV1.2", Condition: "equals", Values: []string{"I"}}, true},
		{"equals any of", Definition{Field: "OBX.3.1", Condition: "equals", Values: []string{"8480-6", "8867-4"}}, true},
		{"equals miss", Definition{Field: "OBX.3.1", Condition: "equals", Values: []string{"8480-6"}}, false},
		{"not_equals", Definition{Field: "PV1.2", Condition: "not_equals", Values: []string{"O"}}, true},
		{"not_equals any of", Definition{Field: "PV1.2", Condition: "not_equals", Values: []string{"O", "I"}}, false},
		{"starts_with", Definition{Field: "OBX.3.1", Condition: "starts_with", Values: []string{"88"}}, true},
		{"not_starts_with", Definition{Field: "OBX.3.1", Condition: "not_starts_with", Values: []string{"88"}}, false},
		{"contains", Definition{Field: "OBX.3.1", Condition: "contains", Values: []string{"-4"}}, true},
		{"not_contains", Definition{Field: "OBX.3.1", Condition: "not_contains", Values: []string{"x"}}, true},
		{"greater_than numeric", Definition{Field: "OBX.5", Condition: "greater_than", Values: []string{"9"}}, true},
		{"less_than numeric", Definition{Field: "OBX.5", Condition: "less_than", Values: []string{"100"}}, true},
		{"greater_than lexical", Definition{Field: "PV1.2", Condition: "greater_than", Values: []string{"E"}}, true},
		{"less_than missing field is false", Definition{Field: "ZZZ.2", Condition: "less_than", Values: []string{"18"}}, false},
		{"greater_than missing field is false", Definition{Field: "ZZZ.2", Condition: "greater_than", Values: []string{"A"}}, false},
		{"less_than non-numeric value is false", Definition{Field: "PV1.2", Condition: "less_than", Values: []string{"18"}}, false},
		{"greater_than non-numeric value is false", Definition{Field: "PV1.2", Condition: "greater_than", Values: []string{"0"}}, false},
		{"regex_match", Definition{Field: "OBX.3.1", Condition: "regex_match", Values: []string{`^\d{4}-\d$`}}, true},
		{"regex_not_match", Definition{Field: "OBX.3.1", Condition: "regex_not_match", Values: []string{`^\d{4}-\d$`}}, false},
		{"date_age_greater_than", Definition{Field: "PID.8", Condition: "date_age_greater_than", Values: []string{"18"}}, true},
		{"date_age_less_than", Definition{Field: "PID.8", Condition: "date_age_less_than", Values: []string{"18"}}, false},
		{"date_age format", Definition{Field: "PID.8", Condition: "date_age_greater_than", Values: []string{"44"}, Format: "YYYYMMDD"}, false},
		{"date_age unparsable is false", Definition{Field: "PID.8b", Condition: "date_age_greater_than", Values: []string{"1"}}, false},
		{"date_age unparsable less is false", Definition{Field: "PID.8b", Condition: "date_age_less_than", Values: []string{"200"}}, false},
		{"missing field equals empty", Definition{Field: "ZZZ.1", Condition: "equals"}, true},
		{"missing field not_equals", Definition{Field: "ZZZ.1", Condition: "not_equals", Values: []string{"x"}}, true},
		{"multi value any", Definition{Field: "NAME", Condition: "equals", Values: []string{"SMITH"}}, true},
		{"multi value negation", Definition{Field: "NAME", Condition: "not_equals", Values: []string{"SMITH"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Eval(data, now))
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for name, def := range map[string]Definition{
		"unknown kind": {Field: "PID.3", Condition: "is_like"},
		"no field":     {Condition: "equals"},
		"bad regex":    {Field: "PID.3", Condition: "regex_match", Values: []string{"("}},
		"bad age":      {Field: "PID.8", Condition: "date_age_less_than", Values: []string{"old"}},
		"bad format":   {Field: "PID.8", Condition: "date_age_less_than", Values: []string{"1"}, Format: "nope"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Compile(def)
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.FilterError))
		})
	}
}

func TestSet_All(t *testing.T) {
	var set Set

	for _, def := range []Definition{
		{Field: "MSH.9.1", Condition: "equals", Values: []string{"ADT"}},
		{Field: "PID.8", Condition: "date_age_greater_than", Values: []string{"18"}},
	} {
		c, err := Compile(def)
		require.NoError(t, err)

		set = append(set, c)
	}

	adult := lookupOf(map[string][]string{"MSH.9.1": {"ADT"}, "PID.8": {"19800101"}})
	child := lookupOf(map[string][]string{"MSH.9.1": {"ADT"}, "PID.8": {"20200101"}})

	assert.True(t, set.All(adult, now))
	assert.False(t, set.All(child, now))

	failed, ok := set.FirstFailure(child, now)
	assert.False(t, ok)
	assert.Equal(t, "PID.8", failed.Field)

	assert.True(t, Set(nil).All(child, now))
}
