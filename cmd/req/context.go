package main

import (
	"fmt"

	"requirements/internal/bootstrap"
	"requirements/internal/branchstate"
	"requirements/internal/gitutil"
	"requirements/internal/messages"
	"requirements/internal/policy"
)

// engineContext is the resolved ambient state every req subcommand needs.
type engineContext struct {
	ProjectDir string
	Branch     string
	CommonDir  string
	SessionID  string
	Policy     *policy.Document
	Provider   messages.Provider
}

func loadEngineContext() (*engineContext, error) {
	project := projectDir()
	if project == "" {
		return nil, fmt.Errorf("no project directory (pass --project or run inside one)")
	}
	branch, err := gitutil.CurrentBranch(project)
	if err != nil {
		return nil, fmt.Errorf("resolving git branch: %w", err)
	}
	commonDir, err := gitutil.CommonDir(project)
	if err != nil {
		return nil, fmt.Errorf("resolving git common dir: %w", err)
	}
	return &engineContext{
		ProjectDir: project,
		Branch:     branch,
		CommonDir:  commonDir,
		SessionID:  sessionID(),
		Policy:     bootstrap.LoadPolicy(project),
		Provider:   bootstrap.LoadProvider(project),
	}, nil
}

func (c *engineContext) branchDoc() *branchstate.Document {
	return branchstate.Load(c.CommonDir, c.ProjectDir, c.Branch)
}
