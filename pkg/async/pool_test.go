package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"StatusServer/config"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var asyncLoggerOnce sync.Once

func initAsyncTestLogger() {
	asyncLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

func TestRunSafePropagatesMetaAndSurvivesParentCancel(t *testing.T) {
	initAsyncTestLogger()
	require.NoError(t, Init(config.DefaultAsyncConfig()))
	defer func() { _ = Release() }()

	parent, cancel := context.WithCancel(ctxmeta.WithTraceID(context.Background(), "trace-x"))
	cancel()

	got := make(chan string, 1)
	RunSafe(parent, func(ctx context.Context) {
		if ctx.Err() != nil {
			got <- "cancelled"
			return
		}
		got <- ctxmeta.TraceID(ctx)
	}, time.Second)

	select {
	case v := <-got:
		assert.Equal(t, "trace-x", v)
	case <-time.After(2 * time.Second):
		t.Fatal("task not executed")
	}
}

func TestRunSafeRecoversPanic(t *testing.T) {
	initAsyncTestLogger()
	require.NoError(t, Init(config.DefaultAsyncConfig()))
	defer func() { _ = Release() }()

	done := make(chan struct{})
	RunSafe(context.Background(), func(context.Context) {
		defer close(done)
		panic("boom")
	}, time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task not executed")
	}
}

func TestRunSafeWithoutPoolFallsBackToGoroutine(t *testing.T) {
	initAsyncTestLogger()
	require.NoError(t, Release())

	done := make(chan struct{})
	RunSafe(context.Background(), func(context.Context) { close(done) }, time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task not executed")
	}
}

func TestBuildUsesExplicitSize(t *testing.T) {
	p, err := Build(config.DefaultAsyncConfig(), 3)
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 3, p.Cap())
}
