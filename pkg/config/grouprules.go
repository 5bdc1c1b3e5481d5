package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/different-technology/entra-be-auth/pkg/errors"
	"github.com/different-technology/entra-be-auth/pkg/provision"
)

// MergeRules is the validated field-merge rule table: baseline assignments
// applied to every login plus per-group assignments keyed by a provider
// group identifier.
type MergeRules struct {
	// GroupsKey names the claim identifying a group in the provider's
	// membership response, e.g. "id" or "displayName".
	GroupsKey string

	// Defaults is the baseline rule set.
	Defaults provision.FieldRules

	// Groups maps a group identifier to its rule set. Empty means group
	// mapping is disabled.
	Groups map[string]provision.FieldRules
}

// GroupMappingEnabled reports whether a per-group rule table is present.
func (m *MergeRules) GroupMappingEnabled() bool {
	return len(m.Groups) > 0
}

// FieldValue is a rule value that may be written as a plain string or as a
// YAML list; lists are normalized to a comma-separated string.
type FieldValue string

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *FieldValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*v = FieldValue(strings.Join(items, ","))
		return nil
	default:
		return fmt.Errorf("line %d: field value must be a string or a list", node.Line)
	}
}

type ruleSet struct {
	Override map[string]FieldValue `yaml:"override"`
	Append   map[string]FieldValue `yaml:"append"`
}

func (r ruleSet) toFieldRules() provision.FieldRules {
	out := provision.FieldRules{}
	if len(r.Override) > 0 {
		out.Override = make(map[string]string, len(r.Override))
		for k, v := range r.Override {
			out.Override[k] = string(v)
		}
	}
	if len(r.Append) > 0 {
		out.Append = make(map[string]string, len(r.Append))
		for k, v := range r.Append {
			out.Append[k] = string(v)
		}
	}
	return out
}

type groupRulesFile struct {
	GroupsKey string             `yaml:"groups_key"`
	Defaults  ruleSet            `yaml:"defaults"`
	Groups    map[string]ruleSet `yaml:"groups"`
}

// LoadGroupRules reads and validates the YAML rule table at path.
//
// An empty path means no rules: defaults empty, group mapping disabled. A
// malformed table disables group mapping with a warning, matching the
// historic behavior of treating a non-mapping groups configuration as
// "feature disabled"; strict mode turns that into a startup error instead.
func LoadGroupRules(path string, strict bool) (*MergeRules, error) {
	if path == "" {
		return &MergeRules{GroupsKey: "id"}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeConfigInvalid, "failed to read group rules file %s", path)
	}

	var file groupRulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		if strict {
			return nil, errors.Wrapf(err, errors.ErrCodeConfigInvalid, "malformed group rules file %s", path)
		}
		slog.Warn("Malformed group rules file, group mapping disabled", "path", path, "error", err)
		return &MergeRules{GroupsKey: "id"}, nil
	}

	rules := &MergeRules{
		GroupsKey: file.GroupsKey,
		Defaults:  file.Defaults.toFieldRules(),
	}
	if rules.GroupsKey == "" {
		rules.GroupsKey = "id"
	}

	if len(file.Groups) > 0 {
		rules.Groups = make(map[string]provision.FieldRules, len(file.Groups))
		for identifier, set := range file.Groups {
			fieldRules := set.toFieldRules()
			if fieldRules.IsZero() {
				if strict {
					return nil, errors.Newf(errors.ErrCodeConfigInvalid, "group %q assigns no fields", identifier)
				}
				slog.Warn("Group rule assigns no fields, skipping", "group", identifier)
				continue
			}
			rules.Groups[identifier] = fieldRules
		}
	}

	return rules, nil
}
