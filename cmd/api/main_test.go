package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/config"
	"github.com/wholesail/wholesail/internal/app"
	"github.com/wholesail/wholesail/pkg/logger"
)

// fakeApp implements the lifecycle half of app.AppInterface.
type fakeApp struct {
	app.AppInterface

	initErr       error
	startErr      error
	blockShutdown bool

	mu              sync.Mutex
	shutdownCalled  bool
	shutdownTimeout time.Duration
	stopped         chan struct{}
}

func newFakeApp() *fakeApp {
	return &fakeApp{stopped: make(chan struct{})}
}

func (f *fakeApp) Initialize() error { return f.initErr }

func (f *fakeApp) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return nil
}

func (f *fakeApp) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	defer close(f.stopped)
	if f.blockShutdown {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeApp) SetShutdownTimeout(d time.Duration) { f.shutdownTimeout = d }
func (f *fakeApp) GetActiveRequestCount() int64       { return 0 }

func withFakeApp(t *testing.T, fake *fakeApp) {
	t.Helper()
	prevApp, prevNotify := newApp, signalNotify
	newApp = func(cfg *config.Config, opts ...app.AppOption) app.AppInterface { return fake }
	t.Cleanup(func() {
		newApp = prevApp
		signalNotify = prevNotify
	})
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{ShutdownTimeout: 3 * time.Second}}
}

func TestRunServer_InitializeError(t *testing.T) {
	fake := newFakeApp()
	fake.initErr = errors.New("db down")
	withFakeApp(t, fake)

	log := logger.NewTestLogger(t)
	err := runServer(testConfig(), log)

	assert.EqualError(t, err, "db down")
	assert.True(t, log.Contains("Failed to initialize application"))
}

func TestRunServer_StartError(t *testing.T) {
	fake := newFakeApp()
	fake.startErr = errors.New("address in use")
	withFakeApp(t, fake)
	signalNotify = func(chan<- os.Signal, ...os.Signal) {}

	err := runServer(testConfig(), logger.NewMockLogger(t))
	assert.EqualError(t, err, "address in use")
}

func TestRunServer_SignalTriggersGracefulShutdown(t *testing.T) {
	fake := newFakeApp()
	withFakeApp(t, fake)

	calls := 0
	signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		calls++
		if calls == 1 {
			c <- os.Interrupt
		}
	}

	log := logger.NewTestLogger(t)
	require.NoError(t, runServer(testConfig(), log))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.shutdownCalled)
	assert.Equal(t, 3*time.Second, fake.shutdownTimeout)
	assert.True(t, log.Contains("Server shut down gracefully"))
}

func TestRunServer_SecondSignalForcesExit(t *testing.T) {
	fake := newFakeApp()
	fake.blockShutdown = true
	withFakeApp(t, fake)

	signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		c <- syscall.SIGTERM
	}

	log := logger.NewTestLogger(t)
	err := runServer(testConfig(), log)

	assert.ErrorIs(t, err, errForcedShutdown)
	assert.True(t, log.Contains("Force shutdown signal received"))
	assert.True(t, log.Contains("Error during forced shutdown"))
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 3*time.Second, shutdownTimeout(testConfig()))
	assert.Equal(t, defaultShutdownTimeout, shutdownTimeout(&config.Config{}))
}
