package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
	"hl7bridge/internal/hl7"
)

func TestStructure(t *testing.T) {
	tests := []struct {
		name     string
		wire     string
		wantErr  bool
		findings []string
	}{
		{"adt with pid", "MSH|^~\\&|A||||||ADT^A01\rPID|||1\r", false, nil},
		{"adt without pid", "MSH|^~\\&|A||||||ADT^A08\rPV1|1|I\r", false, []string{"PID"}},
		{"lower case code", "MSH|^~\\&|A||||||adt\r", false, []string{"PID"}},
		{"oru needs nothing", "MSH|^~\\&|A||||||ORU^R01\rOBX|1\r", false, nil},
		{"no message type", "MSH|^~\\&|A\r", false, nil},
		{"batch header without msh", "FHS|^~\\&|A\rPID|||1\r", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := hl7.Parse([]byte(tt.wire))
			require.NoError(t, err)

			findings, err := Structure(msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, fault.Is(err, fault.MalformedMessageError))

				return
			}

			require.NoError(t, err)
			require.Len(t, findings, len(tt.findings))

			for i, tag := range tt.findings {
				assert.Equal(t, fault.MalformedMessageError, findings[i].Kind)
				assert.Equal(t, tag, findings[i].Path)
			}
		})
	}
}
