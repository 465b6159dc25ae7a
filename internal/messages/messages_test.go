package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsEmptyBundle(t *testing.T) {
	err := Validate(Bundle{})
	assert.Error(t, err)
}

func TestValidateAcceptsFallbackOnly(t *testing.T) {
	err := Validate(Bundle{FallbackText: "something"})
	assert.NoError(t, err)
}

func TestFallbackBundleWithRawMessageSubstitutes(t *testing.T) {
	subs := Substitutions{"req_name": "commit_plan", "auto_resolve_skill": ""}
	b := FallbackBundle("commit_plan", "Blocked: {req_name}, please resolve", subs)
	assert.Equal(t, "Blocked: commit_plan, please resolve", b.BlockingMessage)
	assert.Equal(t, b.BlockingMessage, b.ShortMessage)
	assert.Equal(t, b.BlockingMessage, b.FallbackText)
}

func TestFallbackBundleWithoutMessageNamesSkill(t *testing.T) {
	subs := Substitutions{"auto_resolve_skill": "commit-planner"}
	b := FallbackBundle("commit_plan", "", subs)
	assert.Contains(t, b.BlockingMessage, "commit-planner")
	assert.Contains(t, b.ShortMessage, "commit_plan")
	assert.NotEqual(t, b.BlockingMessage, b.ShortMessage)
}

func TestFallbackBundleWithoutSkillIsGeneric(t *testing.T) {
	subs := Substitutions{"auto_resolve_skill": ""}
	b := FallbackBundle("commit_plan", "", subs)
	assert.Contains(t, b.BlockingMessage, "req satisfy commit_plan")
}

func TestLoadYAMLProviderMissingFileFallsBackGracefully(t *testing.T) {
	p := LoadYAMLProvider(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	b := p.Resolve("commit_plan", "blocking", Substitutions{})
	assert.Empty(t, b.BlockingMessage)
}

func TestLoadYAMLProviderResolvesPerRequirementOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	content := `
defaults:
  blocking:
    blocking_message: "default blocking for {req_name}"
    short_message: "short default"
requirements:
  commit_plan:
    blocking_message: "custom blocking for {req_name}"
    short_message: "custom short"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p := LoadYAMLProvider(path)
	b := p.Resolve("commit_plan", "blocking", Substitutions{"req_name": "commit_plan"})
	assert.Equal(t, "custom blocking for commit_plan", b.BlockingMessage)
	assert.Equal(t, "custom short", b.ShortMessage)

	fallenBack := p.Resolve("other_requirement", "blocking", Substitutions{"req_name": "other_requirement"})
	assert.Equal(t, "default blocking for other_requirement", fallenBack.BlockingMessage)
}

func TestLoadYAMLProviderMalformedFileFallsBackGracefully(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o600))

	p := LoadYAMLProvider(path)
	b := p.Resolve("commit_plan", "blocking", Substitutions{})
	assert.Empty(t, b.BlockingMessage)
}
