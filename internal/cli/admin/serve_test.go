package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/config"
)

type fakeServer struct {
	err error
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	return s.err
}

type fakeDrainer struct {
	calls    int
	deadline time.Time
}

func (d *fakeDrainer) Drain(ctx context.Context) error {
	d.calls++
	d.deadline, _ = ctx.Deadline()
	return ctx.Err()
}

func TestNewHTTPServer_Timeouts(t *testing.T) {
	cfg := &config.Config{Port: "9090", HTTPWriteTimeout: 45 * time.Second}

	srv := newHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 45*time.Second, srv.WriteTimeout)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
}

func TestShutdownServer_DrainsLogs(t *testing.T) {
	logs := &fakeDrainer{}

	err := shutdownServer(context.Background(), &fakeServer{}, logs, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 1, logs.calls)
}

func TestShutdownServer_DrainsLogsWhenShutdownFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	logs := &fakeDrainer{}
	err := shutdownServer(ctx, &fakeServer{err: context.DeadlineExceeded}, logs, zap.NewNop())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "server forced to shutdown")
	assert.Equal(t, 1, logs.calls)
	assert.True(t, logs.deadline.After(time.Now()), "drain should get a fresh deadline")
}
