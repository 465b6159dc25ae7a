package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirements/internal/policy"
)

func guardReq(name, guardType string, protected []string) *policy.Requirement {
	return &policy.Requirement{
		Name:              name,
		Type:              policy.Guard,
		Enabled:           true,
		GuardType:         guardType,
		ProtectedBranches: protected,
	}
}

// TestProtectedBranchGuardBlocksOnProtectedBranch covers scenario S3.
func TestProtectedBranchGuardBlocksOnProtectedBranch(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	ctx := &Context{
		Requirement: guardReq("protected_branch", "protected_branch", []string{"main", "master"}),
		Branch:      branch,
		ProjectDir:  "proj-guard-1",
		BranchName:  "main",
		SessionID:   "abcd1234",
		DedupTTL:    5 * time.Second,
	}

	got := GuardStrategy{}.Check(ctx)
	require.Equal(t, Block, got.Outcome)
	assert.Contains(t, got.Message, "main")
}

func TestProtectedBranchGuardPassesOnFeatureBranch(t *testing.T) {
	branch := newBranch(t)
	ctx := &Context{
		Requirement: guardReq("protected_branch", "protected_branch", []string{"main", "master"}),
		Branch:      branch,
		ProjectDir:  "proj-guard-2",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := GuardStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
}

// TestProtectedBranchGuardApprovalIsSessionScoped covers scenario S3's
// third step: a new session on the same protected branch is denied again.
func TestProtectedBranchGuardApprovalIsSessionScoped(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	branch.ApproveForSession("protected_branch", "abcd1234", time.Hour, nil)

	approvedCtx := &Context{
		Requirement: guardReq("protected_branch", "protected_branch", []string{"main"}),
		Branch:      branch,
		ProjectDir:  "proj-guard-3",
		BranchName:  "main",
		SessionID:   "abcd1234",
		DedupTTL:    5 * time.Second,
	}
	got := GuardStrategy{}.Check(approvedCtx)
	assert.Equal(t, Pass, got.Outcome, "the approving session should pass")

	newSessionCtx := &Context{
		Requirement: guardReq("protected_branch", "protected_branch", []string{"main"}),
		Branch:      branch,
		ProjectDir:  "proj-guard-3",
		BranchName:  "main",
		SessionID:   "ffff0000",
		DedupTTL:    5 * time.Second,
	}
	got = GuardStrategy{}.Check(newSessionCtx)
	assert.Equal(t, Block, got.Outcome, "a different session must not inherit the approval")
}

func TestSingleSessionGuardPassesWhenAlone(t *testing.T) {
	branch := newBranch(t)
	ctx := &Context{
		Requirement:       guardReq("single_session", "single_session", nil),
		Branch:            branch,
		ProjectDir:        "proj-guard-4",
		BranchName:        "feature/a",
		SessionID:         "abcd1234",
		OtherLiveSessions: func(project, excludeSID string) map[string]SessionAge { return nil },
	}

	got := GuardStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
}

func TestSingleSessionGuardBlocksWhenAnotherSessionIsLive(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	branch := newBranch(t)
	now := time.Now().Unix()
	ctx := &Context{
		Requirement: guardReq("single_session", "single_session", nil),
		Branch:      branch,
		ProjectDir:  "proj-guard-5",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
		DedupTTL:    5 * time.Second,
		OtherLiveSessions: func(project, excludeSID string) map[string]SessionAge {
			return map[string]SessionAge{
				"ffff0000": NewSessionAge("ffff0000", now-30, now-30),
			}
		},
	}

	got := GuardStrategy{}.Check(ctx)
	require.Equal(t, Block, got.Outcome)
	assert.Contains(t, got.Message, "ffff0000")
	assert.Contains(t, got.Message, "30s ago")
}

func TestUnknownGuardTypePasses(t *testing.T) {
	branch := newBranch(t)
	ctx := &Context{
		Requirement: guardReq("mystery", "something_unrecognized", nil),
		Branch:      branch,
		ProjectDir:  "proj-guard-6",
		BranchName:  "feature/a",
		SessionID:   "abcd1234",
	}

	got := GuardStrategy{}.Check(ctx)
	assert.Equal(t, Pass, got.Outcome)
}

// TestAgeFormattingCrossoverPoints covers spec §9 Open Question 3: the
// 60s/3600s crossover points are contractual.
func TestAgeFormattingCrossoverPoints(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	cases := []struct {
		ageSeconds int64
		want       string
	}{
		{0, "0s ago"},
		{59, "59s ago"},
		{60, "1m ago"},
		{3599, "59m ago"},
		{3600, "1h ago"},
		{7200, "2h ago"},
	}
	for _, c := range cases {
		branch := newBranch(t)
		now := time.Now().Unix()
		ctx := &Context{
			Requirement: guardReq("single_session", "single_session", nil),
			Branch:      branch,
			ProjectDir:  "proj-guard-age",
			BranchName:  "feature/a",
			SessionID:   "abcd1234",
			DedupTTL:    5 * time.Second,
			OtherLiveSessions: func(project, excludeSID string) map[string]SessionAge {
				return map[string]SessionAge{
					"ffff0000": NewSessionAge("ffff0000", now-c.ageSeconds, now-c.ageSeconds),
				}
			},
		}
		got := GuardStrategy{}.Check(ctx)
		require.Equal(t, Block, got.Outcome)
		assert.Contains(t, got.Message, c.want, "age %ds", c.ageSeconds)
	}
}
