// Package branchsize is the reference dynamic calculator of spec §4.C15:
// total added+deleted line count across committed, staged, and unstaged
// changes, with stacked-base detection for feature/fix branches.
//
// Grounded on original_source/hooks/lib/branch_size_calculator.py (the
// base-branch selection order and the three-axis diff strategy) and
// test_branch_size_calculator.py for the expected shape of edge cases
// (detached HEAD, protected branch, no upstream). Uses internal/gitutil,
// itself grounded on the teacher's system/runtime/lib/git/operations.go.
package branchsize

import (
	"fmt"
	"sort"
	"strings"

	"requirements/internal/calculator"
	"requirements/internal/gitutil"
)

// Name is this calculator's registry key.
const Name = "branch_size"

func init() {
	calculator.Register(Name, Calculator{})
}

// Calculator implements calculator.Calculator.
type Calculator struct{}

var protectedBranches = map[string]bool{"main": true, "master": true}

// Calculate returns the total added+deleted line count for branch relative
// to its detected base, or nil (skip) on detached HEAD / protected branch /
// any git failure (spec §4.C15, §4.C10 step 4, §8 boundary behaviors).
func (Calculator) Calculate(projectDir, branch string) (*calculator.Output, error) {
	if branch == "" || gitutil.IsDetachedHashLike(branch) || protectedBranches[branch] {
		return nil, nil
	}

	base, baseLabel, err := selectBase(projectDir, branch)
	if err != nil || base == "" {
		return nil, nil
	}

	committed, err := gitutil.DiffStatLines(projectDir, base+"..HEAD")
	if err != nil {
		return nil, nil
	}
	staged, err := gitutil.DiffStatLines(projectDir, "--cached")
	if err != nil {
		return nil, nil
	}
	unstagedDiff, err := gitutil.DiffStatLines(projectDir)
	if err != nil {
		return nil, nil
	}
	untracked, err := gitutil.UntrackedFileLines(projectDir)
	if err != nil {
		untracked = 0 // untracked-file scan failing shouldn't void the whole result
	}
	unstaged := unstagedDiff + untracked

	total := committed + staged + unstaged
	summary := fmt.Sprintf(
		"%d lines changed vs %s (committed %d, staged %d, unstaged %d)",
		total, baseLabel, committed, staged, unstaged,
	)

	return &calculator.Output{
		Value:   float64(total),
		Summary: summary,
		Extra: map[string]any{
			"base_branch": baseLabel,
			"committed":   committed,
			"staged":      staged,
			"unstaged":    unstaged,
		},
	}, nil
}

// selectBase implements spec §4.C15's base-branch selection order:
//
//	(a) nearest feature parent via merge-base against every other local
//	    feature/* or fix/* branch, choosing the one with the fewest commits
//	    in merge-base..current (stacked-base detection);
//	(b) origin/main; (c) origin/master; (d) local main; (e) local master.
func selectBase(projectDir, branch string) (ref, label string, err error) {
	if base, ok := nearestFeatureParent(projectDir, branch); ok {
		return base, base, nil
	}

	candidates := []string{"origin/main", "origin/master", "main", "master"}
	for _, c := range candidates {
		if gitutil.RemoteRefExists(projectDir, c) {
			return c, c, nil
		}
	}
	return "", "", fmt.Errorf("branchsize: no base branch resolvable")
}

type candidateBase struct {
	name        string
	commitCount int
}

func nearestFeatureParent(projectDir, branch string) (string, bool) {
	all, err := gitutil.LocalBranches(projectDir)
	if err != nil {
		return "", false
	}

	var candidates []candidateBase
	for _, other := range all {
		if other == branch {
			continue
		}
		if !strings.HasPrefix(other, "feature/") && !strings.HasPrefix(other, "fix/") {
			continue
		}
		base, err := gitutil.Run(projectDir, "merge-base", other, branch)
		if err != nil || base == "" {
			continue
		}
		count, err := gitutil.MergeBaseCommitCount(projectDir, base, branch)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidateBase{name: other, commitCount: count})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].commitCount < candidates[j].commitCount
	})
	return candidates[0].name, true
}
