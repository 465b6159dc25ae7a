// Package metrics is the opportunistic, write-only per-session metrics
// sink of spec §6 ("Metrics (opportunistic, side-channel)") and §1
// ("Session-analytics... writes are opportunistic and must never influence
// decisions"). Nothing in this engine ever reads these files back.
//
// Grounded on original_source/hooks/lib/session_metrics.py.
package metrics

import (
	"path/filepath"
	"time"

	"requirements/internal/atomicstore"
)

// Document is one session's opportunistic metrics record.
type Document struct {
	SessionID      string         `json:"session_id"`
	StartedAt      int64          `json:"started_at,omitempty"`
	LastEventAt    int64          `json:"last_event_at"`
	EventCounts    map[string]int `json:"event_counts"`
	ToolCounts     map[string]int `json:"tool_counts"`
	Satisfactions  map[string]int `json:"satisfactions"`
	FailureCounts  map[string]int `json:"failure_counts,omitempty"`
	CompactCount   int            `json:"compact_count,omitempty"`
}

// Path returns a session's metrics file path under commonDir (spec §6).
func Path(commonDir, sid8 string) string {
	return filepath.Join(commonDir, "requirements", "sessions", sid8+".json")
}

func load(commonDir, sid8 string) *Document {
	doc := &Document{
		SessionID:     sid8,
		EventCounts:   map[string]int{},
		ToolCounts:    map[string]int{},
		Satisfactions: map[string]int{},
	}
	atomicstore.Read(Path(commonDir, sid8), doc)
	if doc.EventCounts == nil {
		doc.EventCounts = map[string]int{}
	}
	if doc.ToolCounts == nil {
		doc.ToolCounts = map[string]int{}
	}
	if doc.Satisfactions == nil {
		doc.Satisfactions = map[string]int{}
	}
	if doc.FailureCounts == nil {
		doc.FailureCounts = map[string]int{}
	}
	return doc
}

func (d *Document) save(commonDir string) {
	d.LastEventAt = time.Now().Unix()
	atomicstore.Write(Path(commonDir, d.SessionID), d)
}

// RecordEvent bumps the count for a hook event name.
func RecordEvent(commonDir, sid8, eventName string) {
	d := load(commonDir, sid8)
	if d.StartedAt == 0 {
		d.StartedAt = time.Now().Unix()
	}
	d.EventCounts[eventName]++
	d.save(commonDir)
}

// RecordTool bumps the count for a tool name.
func RecordTool(commonDir, sid8, toolName string) {
	d := load(commonDir, sid8)
	d.ToolCounts[toolName]++
	d.save(commonDir)
}

// RecordSatisfaction bumps the count for a requirement name being satisfied.
func RecordSatisfaction(commonDir, sid8, requirementName string) {
	d := load(commonDir, sid8)
	d.Satisfactions[requirementName]++
	d.save(commonDir)
}

// RecordFailure bumps and returns toolName's per-tool failure count
// (PostToolUseFailure, spec §4.C11), grounded on
// original_source/hooks/handle-tool-failure.py's failure_counts map.
func RecordFailure(commonDir, sid8, toolName string) int {
	d := load(commonDir, sid8)
	d.FailureCounts[toolName]++
	count := d.FailureCounts[toolName]
	d.save(commonDir)
	return count
}

// RecordCompaction bumps the compaction counter (PreCompact, spec §4.C11).
func RecordCompaction(commonDir, sid8 string) {
	d := load(commonDir, sid8)
	d.CompactCount++
	d.save(commonDir)
}
