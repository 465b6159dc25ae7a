// Progress/console-noise dedup — folded in from
// original_source/hooks/lib/progress.py and console.py. Purely cosmetic: an
// optional stderr progress line for long-running CLI operations (prune,
// upgrade-style scans), never consulted by any decision path (spec §2
// "Plumbing, logging, progress UI", §1 analytics writes are "opportunistic").
package logging

import (
	"fmt"
	"os"
	"sync"
)

// Progress prints a single-line, overwriting progress indicator to stderr
// when console output is enabled above "silent". Repeated calls with the
// same message are suppressed to avoid flooding the terminal.
type Progress struct {
	mu      sync.Mutex
	lastMsg string
}

// NewProgress returns a Progress reporter.
func NewProgress() *Progress { return &Progress{} }

// Step reports msg if it differs from the last reported message.
func (p *Progress) Step(msg string) {
	mu.Lock()
	console := consoleLevel
	mu.Unlock()
	if console == "silent" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if msg == p.lastMsg {
		return
	}
	p.lastMsg = msg
	fmt.Fprintf(os.Stderr, "\r\x1b[K%s", msg)
}

// Done finishes the progress line with a trailing newline.
func (p *Progress) Done() {
	mu.Lock()
	console := consoleLevel
	mu.Unlock()
	if console == "silent" {
		return
	}
	fmt.Fprintln(os.Stderr)
}
