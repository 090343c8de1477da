package document

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/fault"
)

func sample() *Node {
	obs := NewGroup("Observations").Add(
		NewGroup("Observation").Add(
			NewLeaf("Code", "8867-4", coerce.String),
			NewLeaf("Value", "72", coerce.Integer),
		),
		NewGroup("Observation").Add(
			NewLeaf("Code", "8480-6", coerce.String),
			NewLeaf("Value", "120", coerce.Integer),
		),
	)

	return NewGroup("HealthcareMessage").Add(
		NewGroup("Patient").Add(
			NewLeaf("PatientId", "123456789", coerce.String),
			NewLeaf("LastName", "DOE & SONS", coerce.String),
			NewLeaf("Deceased", "false", coerce.Boolean),
			NewLeaf("MiddleName", "", coerce.String),
		),
		obs,
		NewGroup("Visit"),
	)
}

func TestMarshalXML(t *testing.T) {
	out, err := MarshalXML(sample(), "  ")
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<HealthcareMessage>
  <Patient>
    <PatientId>123456789</PatientId>
    <LastName>DOE &amp; SONS</LastName>
    <Deceased>false</Deceased>
    <MiddleName></MiddleName>
  </Patient>
  <Observations>
    <Observation>
      <Code>8867-4</Code>
      <Value>72</Value>
    </Observation>
    <Observation>
      <Code>8480-6</Code>
      <Value>120</Value>
    </Observation>
  </Observations>
  <Visit></Visit>
</HealthcareMessage>
`
	assert.Equal(t, want, string(out))
}

func TestParseXML_RoundTrip(t *testing.T) {
	out, err := MarshalXML(sample(), "  ")
	require.NoError(t, err)

	root, err := ParseXML(strings.NewReader(string(out)))
	require.NoError(t, err)

	assert.Equal(t, "HealthcareMessage", root.Name)
	patient := root.Child("Patient")
	require.NotNil(t, patient, spew.Sdump(root))
	assert.Equal(t, "DOE & SONS", patient.Child("LastName").Text)
	assert.True(t, patient.Child("MiddleName").IsLeaf())

	obs := root.Child("Observations").ChildrenNamed("Observation")
	require.Len(t, obs, 2)
	assert.Equal(t, "8480-6", obs[1].Child("Code").Text)
}

func TestParseXML_Errors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":      "",
		"unclosed":   "<A><B>1</B>",
		"two roots":  "<A/><B/>",
		"mismatched": "<A></B>",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseXML(strings.NewReader(in))
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.MalformedMessageError))
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	out, err := MarshalJSON(sample(), "")
	require.NoError(t, err)

	want := `{"HealthcareMessage":{"Patient":{"PatientId":"123456789","LastName":"DOE & SONS",` +
		`"Deceased":false,"MiddleName":""},"Observations":{"Observation":[` +
		`{"Code":"8867-4","Value":72},{"Code":"8480-6","Value":120}]},"Visit":{}}}`
	assert.Equal(t, want, string(out))

	indented, err := MarshalJSON(sample(), "  ")
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"HealthcareMessage\": {")
}

func TestParseJSON(t *testing.T) {
	out, err := MarshalJSON(sample(), "  ")
	require.NoError(t, err)

	root, err := ParseJSON(strings.NewReader(string(out)), "Root")
	require.NoError(t, err)
	assert.Equal(t, "HealthcareMessage", root.Name)

	obs := root.Child("Observations").ChildrenNamed("Observation")
	require.Len(t, obs, 2, spew.Sdump(root))
	assert.Equal(t, "72", obs[0].Child("Value").Text)
	assert.Equal(t, "false", root.Child("Patient").Child("Deceased").Text)

	flat, err := ParseJSON(strings.NewReader(`{"a":"1","b":{"c":null}}`), "Root")
	require.NoError(t, err)
	assert.Equal(t, "Root", flat.Name)
	assert.Equal(t, "1", flat.Child("a").Text)
	assert.Equal(t, "", flat.Child("b").Child("c").Text)

	for _, bad := range []string{`[1]`, `{"a":`, `{"a":1} x`, ``} {
		_, err := ParseJSON(strings.NewReader(bad), "Root")
		assert.Error(t, err, bad)
	}
}

func TestNode_ToMap(t *testing.T) {
	m := sample().ToMap()

	patient, ok := m["Patient"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "123456789", patient["PatientId"])

	obs := m["Observations"].(map[string]any)["Observation"].([]any)
	require.Len(t, obs, 2)
	assert.Equal(t, "120", obs[1].(map[string]any)["Value"])
}

func TestMarshalJSON_Literal(t *testing.T) {
	n := NewGroup("M").Add(NewLeaf("Note", `<b> & "q"`, coerce.String))

	out, err := MarshalJSON(n, "")
	require.NoError(t, err)
	assert.Equal(t, `{"M":{"Note":"<b> & \"q\""}}`, string(out))
}

func TestMarshalJSON_SingleRepeatedItem(t *testing.T) {
	item := NewGroup("Allergy").Add(NewLeaf("Code", "PEN", coerce.String))
	item.Repeated = true

	n := NewGroup("M").Add(NewGroup("Allergies").Add(item))

	out, err := MarshalJSON(n, "")
	require.NoError(t, err)
	assert.Equal(t, `{"M":{"Allergies":{"Allergy":[{"Code":"PEN"}]}}}`, string(out))

	// arrays read back keep their list shape
	root, err := ParseJSON(strings.NewReader(string(out)), "Root")
	require.NoError(t, err)

	items := root.Child("Allergies").ChildrenNamed("Allergy")
	require.Len(t, items, 1)
	assert.True(t, items[0].Repeated)

	again, err := MarshalJSON(root, "")
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))

	list, ok := root.ToMap()["Allergies"].(map[string]any)["Allergy"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}
