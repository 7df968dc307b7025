package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(context.Context) (domain.RunReport, error) {
	r.runs.Add(1)
	return domain.RunReport{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_ZeroIntervalDisables(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 0, time.Minute, discardLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.runs.Load())
}

func TestStart_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 20*time.Millisecond, time.Minute, discardLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for runner.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Positive(t, runner.runs.Load())
}

func TestStop_Idempotent(t *testing.T) {
	s := New(&countingRunner{}, 0, time.Minute, discardLogger())

	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}
