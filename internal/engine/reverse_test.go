package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/mapping"
)

const patientWire = "MSH|^~\\&|HL7BRIDGE||||20240115083000||ADT^A01|MSG00001|P|2.5\r" +
	"PID|1||123456789||DOE^Jane||19800101|F\r" +
	"OBX||NM|HEIGHT||170|cm\r" +
	"OBX||NM|WEIGHT||72|kg\r"

func TestReverse_PatientXML(t *testing.T) {
	e := loadEngine(t, "adt_outbound.yaml", nil)
	require.Equal(t, mapping.Reverse, e.Plan().Direction)

	res, err := e.Transform(readTestdata(t, "patient.xml"))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, patientWire, string(res.Output))
	require.Len(t, res.Segments, 4)
	assert.Equal(t, "OBX", res.Segments[3].Tag())
}

func TestReverse_RoundTrip(t *testing.T) {
	in := loadEngine(t, "adt_inbound.yaml", nil)
	out := loadEngine(t, "adt_outbound.yaml", nil)

	doc, err := in.Transform(readTestdata(t, "adt_a01.hl7"))
	require.NoError(t, err)

	wire, err := out.Transform(doc.Output)
	require.NoError(t, err)
	assert.Equal(t, patientWire, string(wire.Output))

	// and back again
	again, err := in.Transform(wire.Output)
	require.NoError(t, err)

	for _, p := range []string{"Patient.PatientId", "Patient.LastName", "Patient.DateOfBirth", "MessageHeader.SentAt"} {
		assert.Equal(t, value(doc.Document, p), value(again.Document, p), p)
	}

	assert.Equal(t, values(doc.Document, "VitalSigns.VitalSign.Value"), values(again.Document, "VitalSigns.VitalSign.Value"))
}

const orderConfig = `
input_format: json
output_format: hl7
root_element: Order
error_handling:
  log_level: skip
mappings:
  orc:
    fields:
      2: Id
      3:
        type: composite
        template: "{id}~{note}"
        fields:
          id: Id
          note: Note
      5: {source: Urgent, type: boolean, values: {Y: true, N: false}}
  obr:
    repeat: Items
    filter:
      - {field: Code, condition: not_equals, value: skipme}
    fields:
      4: Code
      5: {source: Qty, type: integer}
`

func TestReverse_JSONInputEscaping(t *testing.T) {
	e := newEngine(t, orderConfig)

	res, err := e.Transform([]byte(`{
		"Order": {
			"Id": "A^1",
			"Note": "x|y",
			"Urgent": "true",
			"Items": [
				{"Code": "a&b", "Qty": 3},
				{"Code": "skipme", "Qty": 1},
				{"Code": "c", "Qty": 12}
			]
		}
	}`))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(res.Output), "\r"), "\r")
	require.Len(t, lines, 4, string(res.Output))

	assert.True(t, strings.HasPrefix(lines[0], "MSH|"))
	assert.Equal(t, `ORC|A\S\1|A\S\1~x\F\y||Y`, lines[1])
	assert.Equal(t, `OBR|||a\T\b|3`, lines[2])
	assert.Equal(t, `OBR|||c|12`, lines[3])

	// escaped values read back unchanged
	msg, err := hl7.Parse(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "A^1", msg.Unescape(msg.First("ORC").Field(2).Raw))
}

func TestReverse_GeneratedHeader(t *testing.T) {
	e := newEngine(t, orderConfig)

	res, err := e.Transform([]byte(`{"Order": {"Id": "1"}}`))
	require.NoError(t, err)
	require.NotEmpty(t, res.Segments)

	msh := res.Segments[0]
	require.Equal(t, "MSH", msh.Tag())

	control := strings.ToUpper(strings.ReplaceAll(res.ID.String(), "-", ""))[:20]

	assert.Equal(t, "HL7BRIDGE", msh.Get(3))
	assert.Equal(t, "20240615120000", msh.Get(7))
	assert.Equal(t, control, msh.Get(10))
	assert.Equal(t, "P", msh.Get(11))
	assert.Equal(t, "2.5", msh.Get(12))

	// the generated header parses as a valid header
	msg, err := hl7.Parse(res.Output)
	require.NoError(t, err)
	assert.Equal(t, control, msg.Header().Field(10).Raw)
}

func TestReverse_CustomDelimiters(t *testing.T) {
	e := newEngine(t, `
input_format: xml
output_format: hl7
delimiters: "#!$%"
segment_terminator: "\n"
mappings:
  msh:
    fields:
      3: {value: APP}
  pid:
    fields:
      5: Patient.Name
`)

	res, err := e.Transform([]byte("<Message><Patient><Name>A#B</Name></Patient></Message>"))
	require.NoError(t, err)
	assert.Equal(t, "MSH|#!$%|APP\nPID||||A$S$B\n", string(res.Output))
}

func TestReverse_SourceFilters(t *testing.T) {
	e := newEngine(t, `
input_format: xml
output_format: hl7
mappings:
  msh:
    fields:
      3: {value: APP}
  pv1:
    source_filters:
      - {field: Visit.Class, condition: equals, value: I}
    fields:
      3: Visit.Class
`)

	res, err := e.Transform([]byte("<M><Visit><Class>I</Class></Visit></M>"))
	require.NoError(t, err)
	assert.Equal(t, "MSH|^~\\&|APP\rPV1||I\r", string(res.Output))

	res, err = e.Transform([]byte("<M><Visit><Class>O</Class></Visit></M>"))
	require.NoError(t, err)
	assert.Equal(t, "MSH|^~\\&|APP\r", string(res.Output))
}

func TestReverse_GlobalFilter(t *testing.T) {
	e := loadEngine(t, "adt_outbound.yaml", func(f *mapping.File) {
		f.GlobalFilters = mapping.FilterList{{
			Field:     "/HealthcareMessage/Patient/Gender",
			Condition: "equals",
			Values:    mapping.StringList{"M"},
		}}
	})

	res, err := e.Transform(readTestdata(t, "patient.xml"))
	require.NoError(t, err)
	assert.True(t, res.Excluded)
	assert.Empty(t, res.Output)
	assert.Empty(t, res.Segments)
}

func TestReverse_Errors(t *testing.T) {
	e := newEngine(t, `
input_format: xml
output_format: hl7
mappings:
  pid:
    fields:
      3: {source: Patient.Id, required: true}
      7: {source: Patient.Born, type: date, format: YYYY-MM-DD, output_format: YYYYMMDD}
`)

	tests := []struct {
		name  string
		input string
		kind  fault.Kind
	}{
		{"malformed document", "<M><Patient>", fault.MalformedMessageError},
		{"missing required", "<M><Patient><Born>2001-02-03</Born></Patient></M>", fault.PathResolutionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Transform([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, fault.Is(err, tt.kind), err.Error())
		})
	}

	// coercion failures warn by default
	res, err := e.Transform([]byte("<M><Patient><Id>1</Id><Born>yesterday</Born></Patient></M>"))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.True(t, fault.Is(res.Warnings[0], fault.CoercionError))
	assert.Contains(t, string(res.Output), "PID||1\r")
}
