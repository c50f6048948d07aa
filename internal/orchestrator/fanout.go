package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/provider"
)

// Outcome is the final state of one provider after all of its attempts.
type Outcome struct {
	Provider string
	Bundle   idea.Bundle
	Err      error
	Attempts int
}

// FanOut dispatches one prompt to every provider in parallel. Each provider
// runs its own retry loop; a failing provider never cancels its peers.
type FanOut struct {
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	onProgress func(ProgressEvent)
	logger     *slog.Logger
}

// NewFanOut creates a FanOut from cfg. A zero Timeout, a negative Retries
// and a nil Logger take the package defaults.
func NewFanOut(cfg Config) *FanOut {
	cfg = cfg.withDefaults()
	return &FanOut{
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		onProgress: cfg.OnProgress,
		logger:     cfg.Logger,
	}
}

// Run starts every provider concurrently and returns one Outcome per
// provider, in the order the providers were given.
func (f *FanOut) Run(ctx context.Context, providers []provider.Provider, system, user string) []Outcome {
	results := make([]Outcome, len(providers))

	// Plain Group: peers keep running when one of them fails.
	var g errgroup.Group
	for i, p := range providers {
		f.emit(ProgressEvent{Provider: p.ID(), Status: ProgressPending})

		g.Go(func() error {
			results[i] = f.dispatch(ctx, p, system, user)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// dispatch runs the retry loop for a single provider. The error of the last
// attempt is the one reported.
func (f *FanOut) dispatch(ctx context.Context, p provider.Provider, system, user string) Outcome {
	out := Outcome{Provider: p.ID()}
	log := f.logger.With(slog.String("provider", p.ID()))

	for attempt := 1; attempt <= f.retries+1; attempt++ {
		if attempt > 1 {
			f.emit(ProgressEvent{Provider: p.ID(), Attempt: attempt, Status: ProgressRetrying, Message: out.Err.Error()})
			if err := f.wait(ctx, attempt-1); err != nil {
				out.Err = err
				break
			}
		}

		f.emit(ProgressEvent{Provider: p.ID(), Attempt: attempt, Status: ProgressWorking})
		out.Attempts = attempt

		b, err := f.attempt(ctx, p, system, user)
		if err == nil {
			out.Bundle = b
			out.Err = nil
			log.Debug("provider succeeded", slog.Int("attempt", attempt))
			f.emit(ProgressEvent{Provider: p.ID(), Attempt: attempt, Status: ProgressComplete})
			return out
		}

		out.Err = err
		log.Debug("attempt failed", slog.Int("attempt", attempt), slog.String("kind", string(provider.Kind(err))), slog.Any("error", err))

		if !provider.Retryable(err) || ctx.Err() != nil {
			break
		}
	}

	log.Warn("provider failed", slog.Int("attempts", out.Attempts), slog.Any("error", out.Err))
	f.emit(ProgressEvent{Provider: p.ID(), Attempt: out.Attempts, Status: ProgressFailed, Message: out.Err.Error()})
	return out
}

// attempt makes one bounded call. When the attempt deadline fires the call's
// context is cancelled and ErrTimeout is reported, even if the provider has
// not returned yet.
func (f *FanOut) attempt(ctx context.Context, p provider.Provider, system, user string) (idea.Bundle, error) {
	actx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type result struct {
		bundle idea.Bundle
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := p.Complete(actx, system, user)
		ch <- result{bundle: b, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return idea.Bundle{}, f.timeoutErr()
		}
		return r.bundle, r.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return idea.Bundle{}, err
		}
		return idea.Bundle{}, f.timeoutErr()
	}
}

func (f *FanOut) timeoutErr() error {
	return fmt.Errorf("%w after %s", provider.ErrTimeout, f.timeout)
}

// wait sleeps for the linear backoff before retry n.
func (f *FanOut) wait(ctx context.Context, n int) error {
	d := f.backoff * time.Duration(n)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
