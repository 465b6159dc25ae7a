package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMalformedJSONReturnsDisabledDocument(t *testing.T) {
	doc := Parse([]byte("{not json"))
	require.NotNil(t, doc)
	assert.False(t, doc.IsEnabled())
	assert.Empty(t, doc.AllRequirements())
}

func TestParseBasicBlockingRequirement(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"commit_plan": {
				"type": "blocking",
				"scope": "session",
				"trigger_tools": ["Edit", "Write"],
				"message": "Blocked: {req_name}"
			}
		}
	}`))

	require.True(t, doc.IsEnabled())
	require.True(t, doc.IsRequirementEnabled("commit_plan"))
	req := doc.Get("commit_plan")
	require.NotNil(t, req)
	assert.Equal(t, Blocking, req.Type)
	assert.Equal(t, ScopeSession, req.Scope)
	require.Len(t, req.Triggers, 2)
	assert.Equal(t, "Edit", req.Triggers[0].Tool)
}

func TestParseUnrecognizedTypeDisablesRequirement(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"mystery": {"type": "something_unknown"}
		}
	}`))
	assert.False(t, doc.IsRequirementEnabled("mystery"))
}

func TestParseDynamicRequiresCalculatorAndBlockThreshold(t *testing.T) {
	missingCalc := Parse([]byte(`{
		"enabled": true,
		"requirements": {"d1": {"type": "dynamic", "thresholds": {"block": 400}}}
	}`))
	assert.False(t, missingCalc.IsRequirementEnabled("d1"))

	missingBlock := Parse([]byte(`{
		"enabled": true,
		"requirements": {"d2": {"type": "dynamic", "calculator": "branch_size"}}
	}`))
	assert.False(t, missingBlock.IsRequirementEnabled("d2"))

	valid := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"d3": {"type": "dynamic", "calculator": "branch_size", "thresholds": {"warn": 250, "block": 400}}
		}
	}`))
	require.True(t, valid.IsRequirementEnabled("d3"))
	req := valid.Get("d3")
	assert.Equal(t, 400.0, req.ThresholdBlock)
	require.NotNil(t, req.ThresholdWarn)
	assert.Equal(t, 250.0, *req.ThresholdWarn)
}

func TestParseDynamicWarnGreaterThanBlockDisables(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"d1": {"type": "dynamic", "calculator": "branch_size", "thresholds": {"warn": 500, "block": 400}}
		}
	}`))
	assert.False(t, doc.IsRequirementEnabled("d1"))
}

func TestParseDynamicNegativeThresholdDisables(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"d1": {"type": "dynamic", "calculator": "branch_size", "thresholds": {"block": -1}}
		}
	}`))
	assert.False(t, doc.IsRequirementEnabled("d1"))
}

func TestParseProtectedBranchesDefaultsToMainMaster(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {"g1": {"type": "guard", "guard_type": "protected_branch"}}
	}`))
	req := doc.Get("g1")
	require.NotNil(t, req)
	assert.Equal(t, []string{"main", "master"}, req.ProtectedBranches)
}

func TestParseTriggerToolsAsObjects(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"r1": {
				"type": "blocking",
				"trigger_tools": [{"tool": "Bash", "command_pattern": "git\\s+commit"}]
			}
		}
	}`))
	req := doc.Get("r1")
	require.Len(t, req.Triggers, 1)
	assert.Equal(t, "Bash", req.Triggers[0].Tool)
	assert.Equal(t, `git\s+commit`, req.Triggers[0].CommandPattern)
}

func TestParseMalformedTriggerToolsDisablesRequirement(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {"r1": {"type": "blocking", "trigger_tools": {"not": "a list"}}}
	}`))
	assert.False(t, doc.IsRequirementEnabled("r1"))
}

func TestAllRequirementsDeterministicOrder(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"zzz": {"type": "blocking"},
			"aaa": {"type": "blocking"},
			"mmm": {"type": "blocking"}
		}
	}`))
	names := make([]string, 0, 3)
	for _, r := range doc.AllRequirements() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, names)
}

func TestStopDefaults(t *testing.T) {
	doc := Parse([]byte(`{"enabled": true, "requirements": {}}`))
	assert.True(t, doc.Stop.VerifyRequirements)
	assert.Equal(t, []Scope{ScopeSession}, doc.Stop.VerifyScopes)
	assert.True(t, doc.AutoDenyDangerous)
}

func TestDisabledRequirementExplicitly(t *testing.T) {
	doc := Parse([]byte(`{
		"enabled": true,
		"requirements": {"r1": {"type": "blocking", "enabled": false}}
	}`))
	assert.False(t, doc.IsRequirementEnabled("r1"))
}
