// Package hookio implements the stdin/stdout JSON hook protocol of spec §6:
// decode the host's event envelope, encode the engine's decision back out.
//
// Grounded on original_source/hooks/lib/hook_utils.py (the envelope shape
// every handle-*.py reads) and the teacher's named-entry-point cmd-* binaries
// (hooks/tool/cmd-pre-use, hooks/session/cmd-start, ...), generalized from
// os.Args-based invocation to the real Claude Code stdin/stdout JSON
// protocol the spec requires.
package hookio

import (
	"encoding/json"
	"io"
	"os"

	"requirements/internal/sessionid"
)

// Source values for SessionStart (spec §6).
const (
	SourceStartup = "startup"
	SourceResume  = "resume"
	SourceClear   = "clear"
	SourceCompact = "compact"
)

// Event is the decoded hook input envelope (spec §6).
type Event struct {
	SessionID       string         `json:"session_id"`
	HookEventName   string         `json:"hook_event_name"`
	Cwd             string         `json:"cwd"`
	ToolName        string         `json:"tool_name"`
	ToolInput       map[string]any `json:"tool_input"`
	ToolResult      any            `json:"tool_result"`
	Source          string         `json:"source"`
	Reason          string         `json:"reason"`
	StopHookActive  bool           `json:"stop_hook_active"`
	Prompt          string         `json:"prompt"`
	AgentType       string         `json:"agent_type"`
	Error           string         `json:"error"`
	IsInterrupt     bool           `json:"is_interrupt"`

	// Team-hook fields (TeammateIdle, TaskCompleted; spec §4.C11).
	TeammateName string `json:"teammate_name"`
	TeamName     string `json:"team_name"`
	TaskID       string `json:"task_id"`
	TaskSubject  string `json:"task_subject"`
}

// CanonicalSessionID returns the event's session id reduced to 8 hex chars.
func (e Event) CanonicalSessionID() string {
	return sessionid.Canonicalize(e.SessionID)
}

// ToolInputCommand extracts tool_input.command for Bash-shaped invocations,
// returning "" when absent or non-string (never panics on malformed input,
// per spec §7 "malformed hook input").
func (e Event) ToolInputCommand() string {
	if e.ToolInput == nil {
		return ""
	}
	if v, ok := e.ToolInput["command"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Decode reads and parses a hook Event from r. Malformed JSON or an
// unreadable stream returns a zero Event and a non-nil error; callers at the
// cmd/hook-* boundary treat any decode error as "exit 0, no output" per spec
// §7's "malformed hook input" row — this function itself does not decide
// that, it only reports the failure.
func Decode(r io.Reader) (Event, error) {
	var e Event
	data, err := io.ReadAll(r)
	if err != nil {
		return e, err
	}
	if len(data) == 0 {
		return e, io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, err
	}
	return e, nil
}

// DecodeStdin is the usual entry point for cmd/hook-* binaries.
func DecodeStdin() (Event, error) {
	return Decode(os.Stdin)
}

// hookSpecificOutput is the §6 hookSpecificOutput object shared by the
// PreTool denial and context-injection envelopes.
type hookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision        string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason  string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext         string `json:"additionalContext,omitempty"`
}

type preToolOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

// WritePreToolDeny writes the PreToolUse deny envelope (spec §6).
func WritePreToolDeny(w io.Writer, reasonMarkdown string) error {
	out := preToolOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:            "PreToolUse",
		PermissionDecision:       "deny",
		PermissionDecisionReason: reasonMarkdown,
	}}
	return json.NewEncoder(w).Encode(out)
}

// WriteContext writes the generic "additionalContext" injection envelope
// used by SessionStart, PromptSubmit, PostTool (ExitPlanMode), and
// SubagentStart (spec §6).
func WriteContext(w io.Writer, hookEventName, text string) error {
	out := preToolOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:     hookEventName,
		AdditionalContext: text,
	}}
	return json.NewEncoder(w).Encode(out)
}

type decisionOutput struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// WriteStopBlock writes the Stop-event block envelope (spec §6).
func WriteStopBlock(w io.Writer, reasonMarkdown string) error {
	return json.NewEncoder(w).Encode(decisionOutput{Decision: "block", Reason: reasonMarkdown})
}

// WritePermissionDeny writes the PermissionRequest deny envelope (spec §6).
func WritePermissionDeny(w io.Writer, reasonMarkdown string) error {
	return json.NewEncoder(w).Encode(decisionOutput{Decision: "deny", Reason: reasonMarkdown})
}
