package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"requirements/internal/messages"
)

var messagesCmd = &cobra.Command{
	Use:   "messages <requirement>",
	Short: "Show the resolved message bundle for a requirement",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessages,
}

func runMessages(cmd *cobra.Command, args []string) error {
	ctx, err := loadEngineContext()
	if err != nil {
		return err
	}
	name := args[0]
	req := ctx.Policy.Get(name)
	if req == nil {
		return fmt.Errorf("no requirement named %q", name)
	}

	subs := messages.Substitutions{
		"req_name":    name,
		"session_id":  ctx.SessionID,
		"branch":      ctx.Branch,
		"project_dir": ctx.ProjectDir,
	}
	if req.AutoResolveSkill != "" {
		subs["auto_resolve_skill"] = req.AutoResolveSkill
	}

	bundle := ctx.Provider.Resolve(name, string(req.Type), subs)
	if err := messages.Validate(bundle); err != nil {
		bundle = messages.FallbackBundle(name, req.Message, subs)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "header:          %s\n", bundle.Header)
	fmt.Fprintf(out, "blocking_message: %s\n", bundle.BlockingMessage)
	fmt.Fprintf(out, "short_message:   %s\n", bundle.ShortMessage)
	fmt.Fprintf(out, "success_message: %s\n", bundle.SuccessMessage)
	fmt.Fprintf(out, "action_label:    %s\n", bundle.ActionLabel)
	fmt.Fprintf(out, "fallback_text:   %s\n", bundle.FallbackText)
	return nil
}
