package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/provider"
	"github.com/dusk-indust/ideaengine/internal/rank"
)

// bundle builds a bundle whose titles are unique to id.
func bundle(id string, ideas int) idea.Bundle {
	resp := idea.Response{Effort: idea.EffortEstimate{Time: "1 day"}}
	for i := 0; i < ideas; i++ {
		resp.Ideas = append(resp.Ideas, idea.Idea{
			Title:       fmt.Sprintf("%s idea %d", id, i),
			Description: "Some description of reasonable length for clarity",
		})
	}
	return idea.NewBundle(id, id+"-model", resp, "")
}

func succeed(id string, ideas int) *provider.Func {
	return &provider.Func{ProviderID: id, ModelID: id + "-model", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		return bundle(id, ideas), nil
	}}
}

func fail(id string, delay time.Duration) *provider.Func {
	return &provider.Func{ProviderID: id, Fn: func(ctx context.Context, _, _ string) (idea.Bundle, error) {
		time.Sleep(delay)
		return idea.Bundle{}, &provider.APIError{Provider: id, StatusCode: 500, Body: id + " down"}
	}}
}

func TestRun_AllFail_ErrorsInProviderOrder(t *testing.T) {
	o := New([]provider.Provider{
		fail("a", 30*time.Millisecond),
		fail("b", 0),
		fail("c", 15*time.Millisecond),
	}, WithRetries(0))

	res := o.Run(context.Background(), "sys", "user", nil)

	assert.Empty(t, res.Bundles)
	require.Len(t, res.Errors, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, res.Errors[i].Provider)
		assert.Equal(t, provider.KindAPI, res.Errors[i].Kind)
		assert.Contains(t, res.Errors[i].Message, id+" down")
		assert.Equal(t, 1, res.Errors[i].Attempts)
	}
}

func TestRun_ZeroProviders(t *testing.T) {
	res := New(nil).Run(context.Background(), "s", "u", nil)
	assert.NotNil(t, res.Bundles)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Bundles)
	assert.Empty(t, res.Errors)
}

func TestRun_RetrySucceedsOnThirdAttempt(t *testing.T) {
	var calls atomic.Int32
	p := &provider.Func{ProviderID: "flaky", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		if calls.Add(1) < 3 {
			return idea.Bundle{}, errors.New("transient")
		}
		return bundle("flaky", 2), nil
	}}

	res := New([]provider.Provider{p}, WithRetries(2)).Run(context.Background(), "s", "u", nil)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, res.Bundles, 1)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Cards, 1)
	assert.Equal(t, rank.Score(res.Bundles[0], rank.DefaultRubric), res.Cards[0])
}

func TestRun_LastErrorWins(t *testing.T) {
	var calls atomic.Int32
	p := &provider.Func{ProviderID: "p", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		return idea.Bundle{}, fmt.Errorf("failure %d", calls.Add(1))
	}}

	res := New([]provider.Provider{p}, WithRetries(2)).Run(context.Background(), "s", "u", nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "failure 3", res.Errors[0].Message)
	assert.Equal(t, 3, res.Errors[0].Attempts)
	assert.Equal(t, provider.KindUnknown, res.Errors[0].Kind)
}

func TestRun_PartialSuccess(t *testing.T) {
	o := New([]provider.Provider{
		succeed("a", 1),
		fail("b", 0),
		succeed("c", 3),
	}, WithRetries(1))

	res := o.Run(context.Background(), "s", "u", nil)

	require.Len(t, res.Bundles, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "b", res.Errors[0].Provider)
	assert.Equal(t, 2, res.Errors[0].Attempts)
	assert.GreaterOrEqual(t, res.Cards[0].Total, res.Cards[1].Total)
}

func TestRun_MissingCredentialIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := &provider.Func{ProviderID: "openai", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		calls.Add(1)
		return idea.Bundle{}, provider.ErrMissingCredential
	}}

	res := New([]provider.Provider{p}, WithRetries(5)).Run(context.Background(), "s", "u", nil)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, provider.KindCredential, res.Errors[0].Kind)
}

func TestRun_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	p := &provider.Func{ProviderID: "slow", Fn: func(ctx context.Context, _, _ string) (idea.Bundle, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return idea.Bundle{}, ctx.Err()
		}
		return bundle("slow", 1), nil
	}}

	res := New([]provider.Provider{p}, WithTimeout(20*time.Millisecond), WithRetries(1)).
		Run(context.Background(), "s", "u", nil)

	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, res.Bundles, 1)
	assert.Empty(t, res.Errors)
}

func TestRun_TimeoutReported(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Ignores its context entirely.
	p := &provider.Func{ProviderID: "stuck", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		<-release
		return idea.Bundle{}, nil
	}}

	start := time.Now()
	res := New([]provider.Provider{p}, WithTimeout(20*time.Millisecond), WithRetries(1)).
		Run(context.Background(), "s", "u", nil)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, provider.KindTimeout, res.Errors[0].Kind)
	assert.Equal(t, 2, res.Errors[0].Attempts)
	assert.Contains(t, res.Errors[0].Message, "timeout after 20ms")
}

func TestRun_ParentCancelStopsRetries(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := &provider.Func{ProviderID: "p", Fn: func(ctx context.Context, _, _ string) (idea.Bundle, error) {
		calls.Add(1)
		cancel()
		<-ctx.Done()
		return idea.Bundle{}, ctx.Err()
	}}

	res := New([]provider.Provider{p}, WithRetries(3)).Run(ctx, "s", "u", nil)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, provider.KindCanceled, res.Errors[0].Kind)
}

func TestRun_ProvidersRunConcurrently(t *testing.T) {
	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	all := make(chan struct{})
	go func() {
		wg.Wait()
		close(all)
	}()

	providers := make([]provider.Provider, n)
	for i := range providers {
		id := fmt.Sprintf("p%d", i)
		providers[i] = &provider.Func{ProviderID: id, Fn: func(ctx context.Context, _, _ string) (idea.Bundle, error) {
			wg.Done()
			select {
			case <-all:
				return bundle(id, 1), nil
			case <-ctx.Done():
				return idea.Bundle{}, ctx.Err()
			}
		}}
	}

	res := New(providers, WithTimeout(2*time.Second), WithRetries(0)).Run(context.Background(), "s", "u", nil)
	assert.Len(t, res.Bundles, n, "every provider must be in flight at once")
	assert.Empty(t, res.Errors)
}

func TestRun_Backoff(t *testing.T) {
	p := fail("p", 0)
	start := time.Now()
	New([]provider.Provider{p}, WithRetries(2), WithBackoff(15*time.Millisecond)).
		Run(context.Background(), "s", "u", nil)

	// 15ms before attempt 2, 30ms before attempt 3.
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestRun_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var events []ProgressEvent
	record := func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}

	var calls atomic.Int32
	p := &provider.Func{ProviderID: "p", Fn: func(context.Context, string, string) (idea.Bundle, error) {
		if calls.Add(1) == 1 {
			return idea.Bundle{}, errors.New("first")
		}
		return bundle("p", 1), nil
	}}

	New([]provider.Provider{p}, WithRetries(1), WithProgress(record)).Run(context.Background(), "s", "u", nil)

	var statuses []ProgressStatus
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []ProgressStatus{
		ProgressPending, ProgressWorking, ProgressRetrying, ProgressWorking, ProgressComplete,
	}, statuses)
	assert.Equal(t, "first", events[2].Message)
}

func TestRun_DuplicateBundlesMerged(t *testing.T) {
	same := func(id string) *provider.Func {
		return &provider.Func{ProviderID: id, Fn: func(context.Context, string, string) (idea.Bundle, error) {
			b := bundle("shared", 2)
			b.Provider = id
			return b, nil
		}}
	}

	res := New([]provider.Provider{same("a"), same("b")}).Run(context.Background(), "s", "u", nil)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, "a", res.Bundles[0].Provider, "ties keep provider order")
}

func TestNew_Defaults(t *testing.T) {
	o := New(nil, WithTimeout(0), WithRetries(-1))
	assert.Equal(t, DefaultTimeout, o.Config().Timeout)
	assert.Equal(t, DefaultRetries, o.Config().Retries)
	assert.NotNil(t, o.Config().Logger)
}

func TestNewFanOut_ZeroConfig(t *testing.T) {
	f := NewFanOut(Config{})
	assert.Equal(t, DefaultTimeout, f.timeout)
	assert.NotNil(t, f.logger)

	out := f.Run(context.Background(), []provider.Provider{succeed("a", 2)}, "s", "u")
	require.Len(t, out, 1)
	require.NoError(t, out[0].Err)
	assert.Equal(t, 1, out[0].Attempts)
	assert.Len(t, out[0].Bundle.Ideas, 2)

	f = NewFanOut(Config{Retries: -1})
	assert.Equal(t, DefaultRetries, f.retries)
}
