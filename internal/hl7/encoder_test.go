package hl7

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutSegment_Encode(t *testing.T) {
	pid := NewOutSegment("PID")
	pid.Set(4, "123456789")
	pid.Set(6, "DOE^JANE")
	pid.Set(10, "")

	assert.Equal(t, "PID|||123456789||DOE^JANE", pid.Encode(DefaultDelimiters))
	assert.Equal(t, "PID", pid.Tag())
	assert.Equal(t, "DOE^JANE", pid.Get(6))
	assert.Equal(t, "", pid.Get(42))
}

func TestOutSegment_HeaderGetsEncodingCharacters(t *testing.T) {
	msh := NewOutSegment("MSH")
	msh.Set(3, "DEMO")

	assert.Equal(t, `MSH|^~\&|DEMO`, msh.Encode(DefaultDelimiters))
}

func TestEncode_ParsesBack(t *testing.T) {
	msh := NewOutSegment("MSH")
	msh.Set(3, "APP")

	obx1 := NewOutSegment("OBX")
	obx1.Set(4, "8867-4")
	obx1.Set(6, DefaultDelimiters.EscapeText("72|x"))

	out := Encode([]*OutSegment{msh, obx1}, DefaultDelimiters, "")
	assert.Equal(t, "MSH|^~\\&|APP\rOBX|||8867-4||72\\F\\x\r", string(out))

	msg, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "72|x", msg.Unescape(msg.First("OBX").Field(6).Raw))
}
