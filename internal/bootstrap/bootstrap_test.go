package bootstrap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirements/internal/hookio"
	"requirements/internal/policy"
	"requirements/internal/router"
)

func TestPolicyPathAndMessagesPathAreProjectLocal(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", ".claude", "requirements.json"), PolicyPath("/proj"))
	assert.Equal(t, filepath.Join("/proj", ".claude", "messages.yaml"), MessagesPath("/proj"))
}

func TestResolveProjectDirPrefersEventCwd(t *testing.T) {
	t.Setenv("CLAUDE_PROJECT_DIR", "/from/env")
	dir := ResolveProjectDir(hookio.Event{Cwd: "/from/event"})
	assert.Equal(t, "/from/event", dir)
}

func TestResolveProjectDirFallsBackToEnv(t *testing.T) {
	t.Setenv("CLAUDE_PROJECT_DIR", "/from/env")
	dir := ResolveProjectDir(hookio.Event{})
	assert.Equal(t, "/from/env", dir)
}

func TestLoadPolicyMissingFileYieldsDisabledDocument(t *testing.T) {
	dir := t.TempDir()
	doc := LoadPolicy(dir)
	require.NotNil(t, doc)
	assert.Empty(t, doc.Requirements)
}

func TestLoadPolicyEmptyProjectDirYieldsDisabledDocument(t *testing.T) {
	doc := LoadPolicy("")
	require.NotNil(t, doc)
	assert.Empty(t, doc.Requirements)
}

func TestLoadPolicyReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".claude"), 0o700))
	data := `{"enabled": true, "requirements": {"x": {"type": "blocking", "scope": "session"}}}`
	require.NoError(t, os.WriteFile(PolicyPath(dir), []byte(data), 0o600))

	doc := LoadPolicy(dir)
	assert.True(t, doc.IsEnabled())
	assert.True(t, doc.IsRequirementEnabled("x"))
}

func TestBriefingTextEmptyWithoutProjectContext(t *testing.T) {
	out := BriefingText(router.Deps{Policy: &policy.Document{}}, "startup", "")
	assert.Empty(t, out)
}

func TestBriefingTextRendersRequirementStatuses(t *testing.T) {
	dir := t.TempDir()
	doc := policy.Parse([]byte(`{
		"enabled": true,
		"requirements": {
			"commit_plan": {"type": "blocking", "scope": "session", "trigger_tools": ["Write"]}
		}
	}`))
	d := router.Deps{
		Policy:     doc,
		ProjectDir: "/proj",
		CommonDir:  dir,
		Branch:     "feature/x",
		SessionID:  "aaaa1111",
	}
	out := BriefingText(d, "startup", "")
	assert.Contains(t, out, "commit_plan")
}

func TestEmitPreToolDenyWritesEnvelopeAndExitsZero(t *testing.T) {
	var buf bytes.Buffer
	code := Emit(&buf, router.Output{Kind: router.PreToolDeny, Text: "nope"})
	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "nope")
	assert.Contains(t, buf.String(), "deny")
}

func TestEmitExit2ReturnsNonZeroCode(t *testing.T) {
	var buf bytes.Buffer
	code := Emit(&buf, router.Output{Kind: router.Exit2, Text: "check your task"})
	assert.Equal(t, 2, code)
	// Exit2's text goes to stderr, not w.
	assert.Empty(t, buf.String())
}

func TestEmitNoneWritesNothingAndExitsZero(t *testing.T) {
	var buf bytes.Buffer
	code := Emit(&buf, router.Output{Kind: router.None})
	assert.Equal(t, 0, code)
	assert.Empty(t, buf.String())
}
