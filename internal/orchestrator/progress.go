package orchestrator

import "fmt"

// ProgressStatus is the state of one provider during a run.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressRetrying ProgressStatus = "retrying"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent is emitted as providers move through their attempts.
type ProgressEvent struct {
	Provider string         `json:"provider"`
	Attempt  int            `json:"attempt,omitempty"`
	Status   ProgressStatus `json:"status"`
	Message  string         `json:"message,omitempty"`
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Provider)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s attempt %d...", event.Provider, event.Attempt)
	case ProgressRetrying:
		return fmt.Sprintf("  ↻ %s retrying after: %s", event.Provider, event.Message)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.Provider)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Provider, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Provider)
	}
}
