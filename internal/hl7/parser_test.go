package hl7

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
)

const sampleADT = "MSH|^~\\&|EPIC|UCDMC|CERNER|UCDMC|202312151430||ADT^A01^ADT_A01|12345|P|2.5\r" +
	"PID|1||123456789^^^UCDMC^MR||DOE^JANE^MARIE||19850315|F\r" +
	"OBX|1|ST|8867-4^Heart rate||72|bpm\r" +
	"OBX|2|ST|8480-6^Systolic||120|mm[Hg]\r" +
	"OBX|3|ST|9279-1^Resp rate||16|/min\r"

func TestParse_Structure(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	assert.Equal(t, DefaultDelimiters, msg.Delimiters)
	require.Len(t, msg.Segments, 5)
	assert.Empty(t, msg.Malformed)

	pid := msg.First("PID")
	require.NotNil(t, pid)
	assert.Equal(t, 2, pid.Position)
	assert.Equal(t, "PID", pid.Field(1).Raw)
	assert.Equal(t, "123456789^^^UCDMC^MR", pid.Field(4).Raw)

	name := pid.Field(6).Repetition(1)
	require.NotNil(t, name)
	require.Len(t, name.Components, 3)
	assert.Equal(t, "DOE", name.Component(1).Raw)
	assert.Equal(t, "JANE", name.Component(2).Raw)

	assert.Nil(t, pid.Field(100))
	assert.Nil(t, pid.Field(0))
}

func TestParse_RepeatedSegmentsKeepOrder(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	obx := msg.All("OBX")
	require.Len(t, obx, 3)

	var codes []string
	for _, s := range obx {
		codes = append(codes, s.Field(4).Repetition(1).Component(1).Raw)
	}

	assert.Equal(t, []string{"8867-4", "8480-6", "9279-1"}, codes)
	assert.Empty(t, msg.All("AL1"))
	assert.Nil(t, msg.First("AL1"))
}

func TestParse_HeaderEncodingCharactersNotSplit(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	enc := msg.Header().Field(2)
	require.NotNil(t, enc)
	require.Len(t, enc.Repetitions, 1)
	assert.Equal(t, `^~\&`, enc.Repetitions[0].Components[0].Raw)
	assert.Equal(t, "EPIC", msg.Header().Field(3).Raw)
}

func TestParse_CustomDelimiters(t *testing.T) {
	raw := "MSH#*!/%#APP#FAC\nPID###42*X###A%B\n"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, Delimiters{Field: '#', Component: '*', Repetition: '!', Escape: '/', Subcomponent: '%'}, msg.Delimiters)

	pid := msg.First("PID")
	require.NotNil(t, pid)
	assert.Equal(t, "42", pid.Field(4).Repetition(1).Component(1).Raw)

	sub, ok := pid.Field(7).Repetition(1).Component(1).Subcomponent(2)
	require.True(t, ok)
	assert.Equal(t, "B", sub)
}

func TestParse_FieldRepetitions(t *testing.T) {
	msg, err := Parse([]byte("MSH|^~\\&|A\rPID|1||111^^^H1~222^^^H2\r"))
	require.NoError(t, err)

	f := msg.First("PID").Field(4)
	require.Len(t, f.Repetitions, 2)
	assert.Equal(t, "222", f.Repetition(2).Component(1).Raw)
	assert.Nil(t, f.Repetition(3))
}

func TestParse_MLLPFramingAndLineEndings(t *testing.T) {
	raw := "\x0bMSH|^~\\&|A\r\nPID|1\r\n\r\n\x1c\r"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Len(t, msg.Segments, 2)
}

func TestParse_HeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"blank lines", "\r\n\r\n"},
		{"no header", "PID|1||123"},
		{"bare tag", "MSH"},
		{"short encoding", "MSH|^~|APP"},
		{"duplicate delimiter", "MSH|^^\\&|APP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.MalformedMessageError), "got %v", err)
		})
	}
}

func TestParse_MalformedSegmentDoesNotAbort(t *testing.T) {
	raw := "MSH|^~\\&|A\r|no tag\rPID|1||42\r1X|bad\r"

	msg, err := Parse([]byte(raw))
	require.NoError(t, err)

	require.Len(t, msg.Malformed, 2)
	assert.True(t, fault.Is(msg.Malformed[0], fault.MalformedMessageError))
	require.Len(t, msg.Segments, 2)
	assert.Equal(t, "PID", msg.Segments[1].Tag)
	assert.Equal(t, 3, msg.Segments[1].Position)
}

func TestMessage_ToMap(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	m := msg.ToMap()
	obx, ok := m["OBX"].([]any)
	require.True(t, ok)
	require.Len(t, obx, 3)

	second := obx[1].([]any)
	assert.Equal(t, "OBX", second[0])
	assert.Equal(t, "120", second[5])
}
