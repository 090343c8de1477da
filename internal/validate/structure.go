package validate

import (
	"strings"

	"hl7bridge/internal/fault"
	"hl7bridge/internal/hl7"
)

// requiredSegments lists the segments a message type must carry, keyed by
// the message code in MSH.9.1.
var requiredSegments = map[string][]string{
	"ADT": {"PID"},
}

// Structure checks the segment layout of msg. A message without an MSH
// segment cannot be mapped and yields err. Segments required by the message
// type but absent are returned as findings for the caller's policy.
func Structure(msg *hl7.Message) (findings []*fault.Error, err error) {
	msh := msg.First("MSH")
	if msh == nil {
		return nil, fault.New(fault.MalformedMessageError, "missing required MSH segment")
	}

	var code string
	if c := msh.Field(9).Repetition(1).Component(1); c != nil {
		code = strings.ToUpper(strings.TrimSpace(c.Raw))
	}

	for _, tag := range requiredSegments[code] {
		if msg.First(tag) == nil {
			findings = append(findings, fault.New(fault.MalformedMessageError,
				"missing required %s segment for %s message", tag, code).WithPath(tag))
		}
	}

	return findings, nil
}
