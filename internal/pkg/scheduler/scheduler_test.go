package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string                { return j.name }
func (j *countingJob) Run(ctx context.Context) error { j.runs++; return j.err }

func TestSchedulerRegister(t *testing.T) {
	s := New()
	job := &countingJob{name: "sweep"}

	require.NoError(t, s.Register("0 0 * * *", job))
	assert.Error(t, s.Register("0 1 * * *", job), "duplicate name must be rejected")
	assert.Error(t, s.Register("not a cron spec", &countingJob{name: "other"}))

	assert.Equal(t, []string{"sweep"}, s.Names())
}

func TestSchedulerRunNow(t *testing.T) {
	s := New()
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register("0 0 * * *", job))

	require.NoError(t, s.RunNow("sweep"))
	assert.Equal(t, 1, job.runs)

	// A failing job still counts as a run and does not break the scheduler.
	job.err = errors.New("boom")
	require.NoError(t, s.RunNow("sweep"))
	assert.Equal(t, 2, job.runs)

	assert.Error(t, s.RunNow("no-such-job"))
}

func TestSchedulerStartStop(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("0 0 * * *", &countingJob{name: "sweep"}))

	s.Start()
	s.Start() // idempotent
	s.Stop()
	s.Stop() // idempotent
}
