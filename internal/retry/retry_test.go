package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestPolicy_Backoff(t *testing.T) {
	llm := LLMPolicy()
	assert.Equal(t, 4*time.Second, llm.Backoff(1))
	assert.Equal(t, 4*time.Second, llm.Backoff(2))
	assert.Equal(t, 8*time.Second, llm.Backoff(3))
	assert.Equal(t, 10*time.Second, llm.Backoff(4))

	st := StorePolicy()
	assert.Equal(t, 2*time.Second, st.Backoff(1))
	assert.Equal(t, 4*time.Second, st.Backoff(2))
	assert.Equal(t, 10*time.Second, st.Backoff(6))
}

func TestPolicy_Do_SucceedsAfterTransientFailures(t *testing.T) {
	var waits []time.Duration
	p := LLMPolicy()
	p.Sleep = noSleep(&waits)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, waits)
}

func TestPolicy_Do_Exhausted(t *testing.T) {
	var waits []time.Duration
	p := StorePolicy()
	p.Sleep = noSleep(&waits)

	boom := errors.New("boom")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, boom)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestPolicy_Do_NonRetryableReturnsImmediately(t *testing.T) {
	var waits []time.Duration
	permanent := errors.New("bad request")
	p := LLMPolicy()
	p.Sleep = noSleep(&waits)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestPolicy_Do_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := LLMPolicy()

	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
