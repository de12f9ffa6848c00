package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/goshard/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEvery_RunsRepeatedly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := Start(ctx, "count", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, logger.NewNop())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestEvery_FirstRunAfterInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := Start(ctx, "late", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, logger.NewNop())

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), runs.Load())
}

func TestEvery_NoOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		runs    atomic.Int32
	)
	done := Start(ctx, "slow", time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
		return nil
	}, logger.NewNop())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestEvery_ErrorsAndPanicsDoNotStopSchedule(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := Start(ctx, "flaky", 2*time.Millisecond, func(context.Context) error {
		switch runs.Add(1) {
		case 1:
			return errors.New("sink unavailable")
		case 2:
			panic("boom")
		}
		return nil
	}, logger.NewFromCore(core))

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, logs.FilterMessageSnippet("run failed").Len(), 2)
	assert.Equal(t, 1, logs.FilterMessageSnippet("sink unavailable").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("panic: boom").Len())
}

func TestEvery_InvalidInterval(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	Every(context.Background(), "bad", 0, func(context.Context) error { return nil }, logger.NewFromCore(core))

	assert.Equal(t, 1, logs.FilterMessageSnippet("interval must be positive").Len())
}

func TestEvery_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int32
	Every(ctx, "cancelled", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	assert.Equal(t, int32(0), runs.Load())
}
