package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{
		Provider: "openai",
		Attempt:  1,
		Status:   ProgressWorking,
	}

	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// The internal channel buffer is 64. Emitting 100 events must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(ProgressEvent{Provider: "gemini", Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.Emit(ProgressEvent{Provider: "mock", Status: ProgressComplete})
	pr.Close()

	var received []ProgressEvent
	for ev := range ch {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, ProgressComplete, received[0].Status)
}

func TestFormatProgress_AllStatuses(t *testing.T) {
	tests := []struct {
		name   string
		event  ProgressEvent
		expect string
	}{
		{
			name:   "pending",
			event:  ProgressEvent{Provider: "anthropic", Status: ProgressPending},
			expect: "  ○ anthropic (pending)",
		},
		{
			name:   "working",
			event:  ProgressEvent{Provider: "anthropic", Attempt: 2, Status: ProgressWorking},
			expect: "  ● anthropic attempt 2...",
		},
		{
			name:   "retrying",
			event:  ProgressEvent{Provider: "anthropic", Status: ProgressRetrying, Message: "API error: HTTP 500: boom"},
			expect: "  ↻ anthropic retrying after: API error: HTTP 500: boom",
		},
		{
			name:   "complete",
			event:  ProgressEvent{Provider: "anthropic", Status: ProgressComplete},
			expect: "  ✓ anthropic complete",
		},
		{
			name:   "failed",
			event:  ProgressEvent{Provider: "anthropic", Status: ProgressFailed, Message: "timeout"},
			expect: "  ✗ anthropic failed: timeout",
		},
		{
			name:   "unknown",
			event:  ProgressEvent{Provider: "anthropic", Status: "weird"},
			expect: "  ? anthropic (unknown status)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatProgress(tt.event))
		})
	}
}
