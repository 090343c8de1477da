// Package mapping loads mapping configuration and compiles it into a Plan
// the engine executes.
//
// Configuration is YAML or JSON. It is read into a yaml.Node tree so the
// declaration order of rules and custom functions survives, checked against
// an embedded JSON Schema, then compiled once into closed rule variants.
// The engine never inspects raw configuration again.
//
// # Schema Overview
//
//	config_name: adt_inbound
//	input_format: hl7
//	output_format: xml
//	root_element: HealthcareMessage
//	global_filters:
//	  - {field: MSH.9.1, condition: equals, value: ADT}
//	error_handling:
//	  on_missing_required: error
//	  on_validation_fail: warn
//	custom_functions:
//	  full_name:
//	    params: [first, last]
//	    expression: first + " " + last
//	mappings:
//	  patient:
//	    patient_id: {source: PID.3.1, required: true}
//	    birth_date: {source: PID.7, type: date, format: YYYYMMDD}
//	    name:
//	      type: composite
//	      template: "{2}, {1}"
//	      source: PID.5
//	  observations:
//	    source: OBX
//	    filter: {OBX.3.1: [HEIGHT, WEIGHT]}
//	    fields:
//	      code: OBX.3.1
//	      value: OBX.5
//
// # Rule shapes
//
// Forward rules are dispatched on their keys:
//
//   - repeated group: source names a bare segment tag and fields is present
//   - composite: type is composite
//   - scalar: any of source, sources, expression, value, default or type
//   - group: anything else; every key except source_filters and element is
//     a child rule
//
// Reverse configurations map segment blocks instead. Each block names a
// segment, optionally repeats over document nodes, and places scalar or
// composite rules at integer field positions.
//
// # Diagnostics
//
// Compile reports every problem it finds rather than stopping at the first.
// Each diagnostic carries a code, the dotted rule path, and suggestions for
// misspelled keys.
package mapping
