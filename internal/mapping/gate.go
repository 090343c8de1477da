package mapping

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"hl7bridge/internal/fault"
)

//go:embed schemas/mapping.schema.json
var schemaJSON []byte

const schemaURL = "mapping.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add embedded schema: %w", err)
	}

	return c.Compile(schemaURL)
})

// SchemaError is one violation of the configuration schema.
type SchemaError struct {
	Path    string
	Message string
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}

	return e.Message
}

// checkShape validates the document against the embedded JSON schema. The
// YAML tree is converted to its JSON data model first, which also rejects
// anchors that contain themselves.
func checkShape(root *yaml.Node) ([]SchemaError, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	data, err := nodeToJSON(root, nil)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fault.New(fault.ConfigError, "encode configuration: %v", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fault.New(fault.ConfigError, "decode configuration: %v", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fault.New(fault.ConfigError, "validate configuration: %v", err)
	}

	p := message.NewPrinter(language.English)

	return collectSchemaErrors(ve, p), nil
}

func collectSchemaErrors(ve *jsonschema.ValidationError, p *message.Printer) []SchemaError {
	if len(ve.Causes) == 0 {
		loc := ""
		if len(ve.InstanceLocation) > 0 {
			loc = strings.Join(ve.InstanceLocation, ".")
		}

		return []SchemaError{{Path: loc, Message: ve.ErrorKind.LocalizedString(p)}}
	}

	var out []SchemaError
	for _, c := range ve.Causes {
		out = append(out, collectSchemaErrors(c, p)...)
	}

	return out
}

// nodeToJSON converts a YAML node to plain JSON values. Mapping keys keep
// their literal text.
func nodeToJSON(node *yaml.Node, visiting map[*yaml.Node]bool) (any, error) {
	if node == nil {
		return nil, nil
	}

	if visiting == nil {
		visiting = make(map[*yaml.Node]bool)
	}

	if node.Kind == yaml.AliasNode {
		target := node.Alias
		if visiting[target] {
			return nil, fault.New(fault.ConfigError, "line %d: anchor %q refers to itself", node.Line, node.Value)
		}

		visiting[target] = true
		defer delete(visiting, target)

		return nodeToJSON(target, visiting)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}

		return nodeToJSON(node.Content[0], visiting)

	case yaml.MappingNode:
		if node.Anchor != "" {
			if visiting[node] {
				return nil, fault.New(fault.ConfigError, "line %d: anchor %q refers to itself", node.Line, node.Anchor)
			}

			visiting[node] = true
			defer delete(visiting, node)
		}

		out := make(map[string]any, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := nodeToJSON(node.Content[i+1], visiting)
			if err != nil {
				return nil, err
			}

			out[node.Content[i].Value] = v
		}

		return out, nil

	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))

		for _, item := range node.Content {
			v, err := nodeToJSON(item, visiting)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}

		return out, nil

	default:
		return scalarToJSON(node), nil
	}
}

func scalarToJSON(node *yaml.Node) any {
	switch node.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if node.Decode(&b) == nil {
			return b
		}
	case "!!int", "!!float":
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
			return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}

	return node.Value
}
