package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/different-technology/entra-be-auth/pkg/errors"
	"github.com/different-technology/entra-be-auth/pkg/provision"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "group-rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGroupRules_EmptyPath(t *testing.T) {
	rules, err := LoadGroupRules("", false)
	require.NoError(t, err)

	assert.Equal(t, "id", rules.GroupsKey)
	assert.True(t, rules.Defaults.IsZero())
	assert.False(t, rules.GroupMappingEnabled())
}

func TestLoadGroupRules_ValidTable(t *testing.T) {
	path := writeRulesFile(t, `
groups_key: displayName
defaults:
  append:
    usergroup: everyone
groups:
  CMS-Editors:
    append:
      usergroup:
        - editor
        - viewer
  CMS-Admins:
    override:
      admin: "1"
`)

	rules, err := LoadGroupRules(path, false)
	require.NoError(t, err)

	assert.Equal(t, "displayName", rules.GroupsKey)
	assert.Equal(t, "everyone", rules.Defaults.Append[provision.FieldUserGroups])
	require.True(t, rules.GroupMappingEnabled())

	editors := rules.Groups["CMS-Editors"]
	assert.Equal(t, "editor,viewer", editors.Append[provision.FieldUserGroups], "list values normalize to comma lists")

	admins := rules.Groups["CMS-Admins"]
	assert.Equal(t, "1", admins.Override[provision.FieldAdmin])
}

func TestLoadGroupRules_DefaultGroupsKey(t *testing.T) {
	path := writeRulesFile(t, `
groups:
  g1:
    append:
      usergroup: editor
`)

	rules, err := LoadGroupRules(path, false)
	require.NoError(t, err)
	assert.Equal(t, "id", rules.GroupsKey)
}

func TestLoadGroupRules_Malformed(t *testing.T) {
	path := writeRulesFile(t, "groups: [not, a, mapping")

	t.Run("LenientDisablesMapping", func(t *testing.T) {
		rules, err := LoadGroupRules(path, false)
		require.NoError(t, err)
		assert.False(t, rules.GroupMappingEnabled())
	})

	t.Run("StrictFailsStartup", func(t *testing.T) {
		_, err := LoadGroupRules(path, true)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
	})
}

func TestLoadGroupRules_EmptyRuleSet(t *testing.T) {
	path := writeRulesFile(t, `
groups:
  g1:
    append:
      usergroup: editor
  g2: {}
`)

	t.Run("LenientSkipsGroup", func(t *testing.T) {
		rules, err := LoadGroupRules(path, false)
		require.NoError(t, err)
		assert.Contains(t, rules.Groups, "g1")
		assert.NotContains(t, rules.Groups, "g2")
	})

	t.Run("StrictFailsStartup", func(t *testing.T) {
		_, err := LoadGroupRules(path, true)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
	})
}

func TestLoadGroupRules_MissingFile(t *testing.T) {
	_, err := LoadGroupRules(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}
