package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (t *testJob) Name() string     { return t.name }
func (t *testJob) Schedule() string { return t.schedule }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(jobs...),
		Locks:    func(string) (Lock, error) { return lock, nil },
	})
	require.NoError(t, err)
	return service
}

func TestRunJobAcquiresAndReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	job := &testJob{name: "noop", schedule: "* * * * *"}
	service := newTestService(t, lock, job)

	service.runJob(context.Background(), job, lock)

	assert.Equal(t, 1, job.runs)
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases)
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	lock := &fakeLock{held: true}
	job := &testJob{name: "noop", schedule: "* * * * *"}
	service := newTestService(t, lock, job)

	service.runJob(context.Background(), job, lock)

	assert.Equal(t, 0, job.runs)
	assert.Equal(t, 0, lock.releases)
}

func TestRunJobReleasesLockOnFailure(t *testing.T) {
	lock := &fakeLock{}
	job := &testJob{name: "boom", schedule: "* * * * *", err: errors.New("boom")}
	service := newTestService(t, lock, job)

	service.runJob(context.Background(), job, lock)

	assert.Equal(t, 1, job.runs)
	assert.Equal(t, 1, lock.releases)
}

func TestRunRejectsInvalidSchedule(t *testing.T) {
	lock := &fakeLock{}
	job := &testJob{name: "bad", schedule: "not-a-schedule"}
	service := newTestService(t, lock, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := service.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
