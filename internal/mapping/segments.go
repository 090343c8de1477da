package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hl7bridge/internal/fault"
	"hl7bridge/internal/path"
)

// segmentBlocks compiles the reverse-direction mapping: one block per key,
// each building one segment (or one per repeat node) from positioned rules.
func (c *compiler) segmentBlocks(mappings *yaml.Node) []*SegmentBlock {
	var blocks []*SegmentBlock

	seen := make(map[string]bool)

	for i := 0; i+1 < len(mappings.Content); i += 2 {
		key := mappings.Content[i].Value
		node := resolveAlias(mappings.Content[i+1])

		if seen[key] {
			c.diags.AddError(fault.ConfigError, CodeDuplicateKey, fmt.Sprintf("duplicate segment block %q", key), key, "")
			continue
		}

		seen[key] = true

		if b := c.segmentBlock(key, node); b != nil {
			blocks = append(blocks, b)
		}
	}

	return blocks
}

func (c *compiler) segmentBlock(key string, node *yaml.Node) *SegmentBlock {
	if node.Kind != yaml.MappingNode {
		c.diags.AddError(fault.ConfigError, CodeShape, "segment block must be a mapping", key, "")
		return nil
	}

	before := len(c.diags.Errors)

	checkKeys(node, segmentKeys, key, &c.diags)

	var def segmentDef
	if err := node.Decode(&def); err != nil {
		c.diags.AddError(fault.ConfigError, CodeShape, err.Error(), key, "")
		return nil
	}

	b := &SegmentBlock{Key: key, Segment: def.Segment}
	if b.Segment == "" {
		b.Segment = strings.ToUpper(key)
	}

	if !path.IsSegmentTag(b.Segment) {
		c.diags.AddError(fault.ConfigError, CodeSegment,
			fmt.Sprintf("%q is not a segment tag", b.Segment), key, "")
	}

	if def.Repeat != "" {
		p, err := path.ParseDocument(def.Repeat)
		if err != nil {
			c.diags.AddErr(fault.PathResolutionError, CodePath, err, key, def.Repeat)
		} else {
			b.Repeat = &p
		}
	}

	b.Filter = c.filters(def.Filter, key+".filter")
	b.SourceFilters = c.filters(def.SourceFilters, key+".source_filters")

	fields, ok := mappingValue(node, "fields")
	if !ok || resolveAlias(fields).Kind != yaml.MappingNode {
		c.diags.AddError(fault.ConfigError, CodeShape, "segment block needs a fields mapping", key, "")
		return nil
	}

	b.Fields = c.positioned(b.Segment, resolveAlias(fields), key+".fields")

	if len(c.diags.Errors) > before {
		return nil
	}

	return b
}

func (c *compiler) positioned(tag string, fields *yaml.Node, prefix string) []PositionedRule {
	var out []PositionedRule

	seen := make(map[int]bool)

	for i := 0; i+1 < len(fields.Content); i += 2 {
		key := fields.Content[i].Value
		rule := joinRule(prefix, key)

		pos, err := strconv.Atoi(key)
		if err != nil || pos < 2 {
			c.diags.AddError(fault.ConfigError, CodePosition,
				fmt.Sprintf("field position %q must be an integer of at least 2", key), rule, "")

			continue
		}

		if pos == 2 && isHeaderSegment(tag) {
			c.diags.AddError(fault.ConfigError, CodePosition,
				"the encoding characters field is written from the delimiters", rule, "")

			continue
		}

		if seen[pos] {
			c.diags.AddError(fault.ConfigError, CodeDuplicateKey,
				fmt.Sprintf("position %d mapped twice", pos), rule, "")

			continue
		}

		seen[pos] = true

		r := c.rule(key, resolveAlias(fields.Content[i+1]), rule)
		switch r.(type) {
		case *Scalar, *Composite:
			out = append(out, PositionedRule{Position: pos, Rule: r})
		case nil:
		default:
			c.diags.AddError(fault.ConfigError, CodeShape,
				"segment fields must be scalar or composite rules", rule, "")
		}
	}

	return out
}

func isHeaderSegment(tag string) bool {
	return tag == "MSH" || tag == "FHS" || tag == "BHS"
}
