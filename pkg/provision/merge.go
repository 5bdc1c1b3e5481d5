package provision

import "strings"

// FieldRules is one declarative rule set applied to a field-assignment map.
// Override entries replace the target value unconditionally; Append entries
// concatenate, except for the list-valued group field which is merged as a
// deduplicated union.
type FieldRules struct {
	Override map[string]string `yaml:"override"`
	Append   map[string]string `yaml:"append"`
}

// IsZero reports whether the rule set assigns nothing.
func (r FieldRules) IsZero() bool {
	return len(r.Override) == 0 && len(r.Append) == 0
}

// MergeFields applies one rule set to the target field map.
//
// Override entries win over whatever is already in the target, so applying
// rule sets in sequence gives last-writer-wins precedence for scalar fields.
// Append entries extend the target: the group-list field becomes the union of
// both comma-separated lists in order of first occurrence, any other field
// gets the rule value concatenated as a string suffix.
func MergeFields(target FieldMap, rules FieldRules) {
	for field, value := range rules.Override {
		target[field] = value
	}

	for field, value := range rules.Append {
		switch field {
		case FieldUserGroups:
			target[field] = uniqueList(target[field], value)
		default:
			target[field] = target[field] + value
		}
	}
}

// uniqueList merges two comma-separated lists into their deduplicated union,
// preserving order of first occurrence.
func uniqueList(current, added string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range append(splitList(current), splitList(added)...) {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return strings.Join(out, ",")
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
