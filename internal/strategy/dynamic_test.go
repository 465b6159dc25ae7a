package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirements/internal/calculator"
	"requirements/internal/policy"
)

// countingCalculator returns a fixed value and counts invocations, so tests
// can assert the calccache actually skips recomputation within the ttl.
type countingCalculator struct {
	value float64
	calls *int
}

func (c countingCalculator) Calculate(projectDir, branch string) (*calculator.Output, error) {
	*c.calls++
	return &calculator.Output{Value: c.value, Summary: fmt.Sprintf("%.0f lines changed", c.value)}, nil
}

func registerTestCalculator(t *testing.T, name string, value float64) *int {
	t.Helper()
	calls := 0
	calculator.Register(name, countingCalculator{value: value, calls: &calls})
	return &calls
}

func dynamicReq(name, calc string, warn *float64, block float64) *policy.Requirement {
	return &policy.Requirement{
		Name:               name,
		Type:               policy.Dynamic,
		Enabled:            true,
		Scope:              policy.ScopeSession,
		Calculator:         calc,
		ThresholdWarn:      warn,
		ThresholdBlock:     block,
		CacheTTLSeconds:    60,
		ApprovalTTLSeconds: 300,
	}
}

func warnPtr(v float64) *float64 { return &v }

func TestDynamicStrategyPassesOnBranchSatisfaction(t *testing.T) {
	branch := newBranch(t)
	branch.Satisfy("branch_size_limit2", policy.ScopeBranch, "manual", nil, 0)

	calls := registerTestCalculator(t, "branch_size_v1", 999)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit2", "branch_size_v1", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
	assert.Equal(t, 0, *calls, "the calculator must not run once branch-level satisfaction already passes")
}

func TestDynamicStrategyPassesOnUnexpiredApproval(t *testing.T) {
	branch := newBranch(t)
	branch.ApproveForSession("branch_size_limit", "abcd1234", time.Hour, nil)

	calls := registerTestCalculator(t, "branch_size_v2", 999)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v2", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
	assert.Equal(t, 0, *calls)
}

func TestDynamicStrategySkipsOnDetachedHead(t *testing.T) {
	branch := newBranch(t)
	calls := registerTestCalculator(t, "branch_size_v3", 999)
	hash := "0123456789abcdef0123456789abcdef01234567"
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v3", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj",
		BranchName:  hash,
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
	assert.Equal(t, 0, *calls, "detached HEAD must never even run the calculator")
}

func TestDynamicStrategySkipsOnProtectedBranch(t *testing.T) {
	branch := newBranch(t)
	calls := registerTestCalculator(t, "branch_size_v4", 999)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v4", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj",
		BranchName:  "main",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
	assert.Equal(t, 0, *calls)
}

// TestDynamicStrategyBlocksAboveThreshold covers scenario S4.
func TestDynamicStrategyBlocksAboveThreshold(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	registerTestCalculator(t, "branch_size_v5", 450)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v5", warnPtr(250), 400),
		Branch:      branch,
		ProjectDir:  "proj-dyn-block",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
		DedupTTL:    5 * time.Second,
	}

	got := DynamicStrategy{}.Check(ctx)
	require.Equal(t, Block, got.Outcome)
	assert.Contains(t, got.Message, "branch_size_limit")
}

func TestDynamicStrategyWarnBelowBlockThreshold(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	registerTestCalculator(t, "branch_size_v6", 380)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v6", warnPtr(250), 400),
		Branch:      branch,
		ProjectDir:  "proj-dyn-warn",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Warn, got.Outcome)
}

func TestDynamicStrategyPassesBelowWarnThreshold(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	registerTestCalculator(t, "branch_size_v7", 10)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v7", warnPtr(250), 400),
		Branch:      branch,
		ProjectDir:  "proj-dyn-pass",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
}

func TestDynamicStrategyCachesCalculatorResult(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	calls := registerTestCalculator(t, "branch_size_v8", 10)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "branch_size_v8", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj-dyn-cache",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	DynamicStrategy{}.Check(ctx)
	DynamicStrategy{}.Check(ctx)
	DynamicStrategy{}.Check(ctx)

	assert.Equal(t, 1, *calls, "repeated checks within cache_ttl must not re-run the calculator")
}

// TestDynamicStrategyMissingCalculatorPasses covers spec §8 invariant 8.
func TestDynamicStrategyMissingCalculatorPasses(t *testing.T) {
	branch := newBranch(t)
	ctx := &Context{
		Requirement: dynamicReq("branch_size_limit", "does-not-exist-calculator", nil, 400),
		Branch:      branch,
		ProjectDir:  "proj-dyn-missing",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := DynamicStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
}
