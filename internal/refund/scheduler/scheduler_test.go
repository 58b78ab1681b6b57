package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"travyy/internal/logger"
	"travyy/internal/refund/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunNow_IsolatesFailures(t *testing.T) {
	out := &syncBuffer{}
	s := scheduler.New(time.Hour, time.Second, logger.NewWriterLogger(out))

	var ran int32
	s.Add("panics", func(context.Context) (int, error) { panic("boom") })
	s.Add("fails", func(context.Context) (int, error) { return 0, errors.New("db down") })
	s.Add("works", func(context.Context) (int, error) {
		atomic.AddInt32(&ran, 1)
		return 3, nil
	})

	require.NotPanics(t, s.RunNow)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
	assert.Contains(t, out.String(), "panics panicked: boom")
	assert.Contains(t, out.String(), "fails failed: db down")
	assert.Contains(t, out.String(), "works processed 3 records")
}

func TestTick_SkipsOverlappingRun(t *testing.T) {
	s := scheduler.New(time.Hour, 5*time.Second, logger.NewDiscardLogger())

	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var runs int32
	s.Add("slow", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
		return 0, nil
	})

	s.Tick()
	<-started
	s.Tick()
	s.Tick()
	close(release)
	s.Stop()

	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestJobContextHasTimeout(t *testing.T) {
	s := scheduler.New(time.Hour, 50*time.Millisecond, logger.NewDiscardLogger())
	var deadlineSet bool
	s.Add("ctx", func(ctx context.Context) (int, error) {
		_, deadlineSet = ctx.Deadline()
		<-ctx.Done()
		return 0, ctx.Err()
	})
	s.RunNow()
	assert.True(t, deadlineSet)
}

func TestStartStop_RunsOnInterval(t *testing.T) {
	s := scheduler.New(10*time.Millisecond, time.Second, logger.NewDiscardLogger())
	var runs int32
	s.Add("tick", func(context.Context) (int, error) {
		atomic.AddInt32(&runs, 1)
		return 0, nil
	})

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))
}

type fakeRefunds struct{ olderThan time.Duration }

func (f *fakeRefunds) AutoExpire(_ context.Context, olderThan time.Duration) (int, error) {
	f.olderThan = olderThan
	return 2, nil
}

type fakePromotions struct{ called bool }

func (f *fakePromotions) ExpireEnded(context.Context) (int, error) {
	f.called = true
	return 0, nil
}

func TestRegisterDefaultJobs(t *testing.T) {
	s := scheduler.New(time.Hour, time.Second, logger.NewDiscardLogger())
	refunds, promos := &fakeRefunds{}, &fakePromotions{}
	scheduler.RegisterDefaultJobs(s, refunds, promos, 72*time.Hour)

	s.RunNow()
	assert.Equal(t, 72*time.Hour, refunds.olderThan)
	assert.True(t, promos.called)
}
