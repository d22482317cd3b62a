package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetryAlwaysFailingEndsInErrorWithAttemptCount(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "metrics", func(context.Context) ([]int, error) {
		calls.Add(1)
		return nil, errors.New("backend down")
	}, WithPolicy(fastPolicy(3)))

	out := res.Load(context.Background())
	require.False(t, out.Success)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "failed after 3 attempts: backend down", out.Error)
	assert.Equal(t, "Failed to load metrics", out.Message)

	st := res.State()
	assert.False(t, st.IsLoading)
	assert.Contains(t, st.Error, "3 attempts")
	assert.Nil(t, st.LastUpdated)
	_, ok := res.Data()
	assert.False(t, ok)
}

func TestRetryRecoversAfterTwoFailures(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "revenue-data", func(context.Context) (string, error) {
		if calls.Add(1) <= 2 {
			return "", errors.New("flaky")
		}
		return "payload", nil
	}, WithPolicy(fastPolicy(3)))

	out := res.Load(context.Background())
	require.True(t, out.Success)
	assert.Equal(t, "payload", out.Data)

	st := res.State()
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
	require.NotNil(t, st.LastUpdated)
	data, ok := res.Data()
	require.True(t, ok)
	assert.Equal(t, "payload", data)
}

func TestWithRetryExhaustedErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	_, err := WithRetry(context.Background(), fastPolicy(2), func(context.Context) (int, error) { return 0, cause })
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 2, ex.Attempts)
	assert.ErrorIs(t, err, cause)
}

func TestWithRetryRecoversPanics(t *testing.T) {
	_, err := WithRetry(context.Background(), fastPolicy(1), func(context.Context) (int, error) { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestLoadTimeoutBoundsRetries(t *testing.T) {
	reg := NewRegistry()
	res := NewResource(reg, "slow", func(context.Context) (int, error) {
		return 0, errors.New("nope")
	}, WithPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	out := res.Load(context.Background())
	assert.False(t, out.Success)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, out.Error, "nope")
}

func TestFailureKeepsPreviousData(t *testing.T) {
	reg := NewRegistry()
	fail := false
	res := NewResource(reg, "k", func(context.Context) (string, error) {
		if fail {
			return "", errors.New("down")
		}
		return "v1", nil
	}, WithPolicy(fastPolicy(1)))

	require.True(t, res.Load(context.Background()).Success)
	first := res.State().LastUpdated
	fail = true
	require.False(t, res.Load(context.Background()).Success)

	data, ok := res.Data()
	require.True(t, ok)
	assert.Equal(t, "v1", data)
	assert.Equal(t, first, res.State().LastUpdated)
	assert.Equal(t, "failed after 1 attempts: down", res.State().Error)
}

func TestRetryClearsErrorBeforeLoading(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "k", func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("first")
		}
		return 7, nil
	}, WithPolicy(fastPolicy(1)))
	require.False(t, res.Load(context.Background()).Success)

	var seen []models.LoadingState
	unsub := res.Subscribe(func(s models.LoadingState) { seen = append(seen, s) })
	defer unsub()

	out := res.Retry(context.Background())
	require.True(t, out.Success)
	require.Len(t, seen, 3)
	assert.Equal(t, models.LoadingState{}, seen[0], "error cleared first")
	assert.True(t, seen[1].IsLoading)
	assert.False(t, seen[2].IsLoading)
	assert.Empty(t, seen[2].Error)
}

func TestSubscribersShareStateByKey(t *testing.T) {
	reg := NewRegistry()
	a := NewResource(reg, "campaign-data", func(context.Context) (int, error) { return 1, nil }, WithPolicy(fastPolicy(1)))
	b := NewResource(reg, "campaign-data", func(context.Context) (int, error) { return 2, nil }, WithPolicy(fastPolicy(1)))

	var mu sync.Mutex
	var got1, got2 []bool
	un1 := a.Subscribe(func(s models.LoadingState) { mu.Lock(); got1 = append(got1, s.IsLoading); mu.Unlock() })
	un2 := b.Subscribe(func(s models.LoadingState) { mu.Lock(); got2 = append(got2, s.IsLoading); mu.Unlock() })

	a.Load(context.Background())
	v, _ := b.Data()
	assert.Equal(t, 1, v, "b observes a's data")
	assert.Equal(t, []bool{true, false}, got1)
	assert.Equal(t, got1, got2)

	un1()
	un1()
	b.Load(context.Background())
	un2()
	assert.Len(t, got1, 2)
	assert.Len(t, got2, 4)
	assert.Equal(t, []string{"campaign-data"}, reg.Keys())
}

type outcome struct {
	v   string
	err error
}

// gatedFetch hands every call's reply channel to the test.
func gatedFetch(calls chan<- chan outcome) Fetcher[string] {
	return func(ctx context.Context) (string, error) {
		c := make(chan outcome)
		calls <- c
		o := <-c
		return o.v, o.err
	}
}

func TestStaleFailureDoesNotOverwriteNewerSuccess(t *testing.T) {
	calls := make(chan chan outcome)
	reg := NewRegistry()
	res := NewResource(reg, "k", gatedFetch(calls), WithPolicy(fastPolicy(1)))

	done1 := make(chan Result[string])
	go func() { done1 <- res.Load(context.Background()) }()
	first := <-calls

	done2 := make(chan Result[string])
	go func() { done2 <- res.Retry(context.Background()) }()
	second := <-calls

	second <- outcome{v: "fresh"}
	require.True(t, (<-done2).Success)

	first <- outcome{err: errors.New("old failure")}
	require.False(t, (<-done1).Success)

	st := res.State()
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
	v, _ := res.Data()
	assert.Equal(t, "fresh", v)
}

func TestStaleSuccessDoesNotOverwriteNewerFailure(t *testing.T) {
	calls := make(chan chan outcome)
	m := NewMetrics(prometheus.NewRegistry())
	reg := NewRegistry(WithMetrics(m))
	res := NewResource(reg, "k", gatedFetch(calls), WithPolicy(fastPolicy(1)))

	done1 := make(chan Result[string])
	go func() { done1 <- res.Load(context.Background()) }()
	first := <-calls

	done2 := make(chan Result[string])
	go func() { done2 <- res.Load(context.Background()) }()
	second := <-calls

	second <- outcome{err: errors.New("new failure")}
	<-done2
	first <- outcome{v: "old data"}
	<-done1

	st := res.State()
	assert.Equal(t, "failed after 1 attempts: new failure", st.Error)
	_, ok := res.Data()
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("k")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("k", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.loads.WithLabelValues("k", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("k")))
}

func TestConcurrentLoadsLeaveConsistentState(t *testing.T) {
	reg := NewRegistry()
	var n atomic.Int32
	res := NewResource(reg, "k", func(context.Context) (int32, error) {
		v := n.Add(1)
		if v%2 == 0 {
			return 0, errors.New("even")
		}
		return v, nil
	}, WithPolicy(fastPolicy(1)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Load(context.Background())
		}()
	}
	wg.Wait()

	st := res.State()
	assert.False(t, st.IsLoading)
	if st.Error == "" {
		require.NotNil(t, st.LastUpdated)
	}
}

func TestAutoRetryGivesUpAfterMax(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "metrics", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("down")
	}, WithPolicy(fastPolicy(1)))

	ar := NewAutoRetry(res, 5*time.Millisecond, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ar.Start(ctx)
	defer ar.Stop()

	res.Load(ctx)
	require.Eventually(t, func() bool {
		return ar.Count() == 3 && !res.State().IsLoading && calls.Load() == 4
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(4), calls.Load(), "no retries past the cap")
	assert.False(t, ar.CanRetry())
	assert.Equal(t, "Failed to load metrics after 3 attempts: failed after 1 attempts: down", ar.Message())
}

func TestAutoRetryCapHoldsAfterEarlierSuccess(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	var down atomic.Bool
	res := NewResource(reg, "metrics", func(context.Context) (int, error) {
		calls.Add(1)
		if down.Load() {
			return 0, errors.New("down")
		}
		return 1, nil
	}, WithPolicy(fastPolicy(1)))

	ar := NewAutoRetry(res, 2*time.Millisecond, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ar.Start(ctx)
	defer ar.Stop()

	require.True(t, res.Load(ctx).Success)
	down.Store(true)
	res.Load(ctx)

	require.Eventually(t, func() bool {
		return ar.Count() == 3 && !res.State().IsLoading && calls.Load() == 5
	}, 2*time.Second, 2*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(5), calls.Load(), "no retries past the cap")
	assert.False(t, ar.CanRetry())
	assert.Equal(t, "Failed to load metrics after 3 attempts: failed after 1 attempts: down", ar.Message())
}

func TestLoadDropsStaleErrorWhileLoading(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "k", func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("first")
		}
		return 7, nil
	}, WithPolicy(fastPolicy(1)))
	require.False(t, res.Load(context.Background()).Success)

	var seen []models.LoadingState
	unsub := res.Subscribe(func(s models.LoadingState) { seen = append(seen, s) })
	defer unsub()

	require.True(t, res.Load(context.Background()).Success)
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.Empty(t, seen[0].Error)
	assert.False(t, seen[1].IsLoading)
}

func TestAutoRetryResetsOnSuccess(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "metrics", func(context.Context) (string, error) {
		if calls.Add(1) <= 2 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, WithPolicy(fastPolicy(1)))

	ar := NewAutoRetry(res, 5*time.Millisecond, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	ar.Start(ctx)

	res.Load(ctx)
	require.Eventually(t, func() bool {
		v, ok := res.Data()
		return ok && v == "ok" && ar.Count() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, ar.Message())

	cancel()
	ar.Stop()
}

func TestAutoRetrySingleFailureMessage(t *testing.T) {
	reg := NewRegistry()
	res := NewResource(reg, "channel-data", func(context.Context) (int, error) {
		return 0, errors.New("down")
	}, WithPolicy(fastPolicy(1)))
	ar := NewAutoRetry(res, time.Hour, 3, nil)
	ar.Start(context.Background())
	defer ar.Stop()

	res.Load(context.Background())
	assert.Equal(t, "Failed to load channel-data: failed after 1 attempts: down", ar.Message())
	assert.True(t, ar.CanRetry())

	require.Error(t, ar.Retry(context.Background()))
	assert.Equal(t, 0, ar.Count())
}

func TestPollLoadsUntilCancelled(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	res := NewResource(reg, "k", func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}, WithPolicy(fastPolicy(1)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		res.Poll(ctx, 2*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
