package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeleter struct {
	mock.Mock
}

func (m *mockDeleter) DeleteBefore(ctx context.Context, ts int64) (int64, error) {
	args := m.Called(ctx, ts)
	return args.Get(0).(int64), args.Error(1)
}

type countingRecorder struct {
	total int64
}

func (r *countingRecorder) RecordRetentionPrune(deleted int64) { r.total += deleted }

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func TestNewPrunerValidation(t *testing.T) {
	_, err := NewPruner(Config{Schedule: "@every 1h"}, new(mockDeleter), nil, testLogger())
	assert.Error(t, err)

	_, err = NewPruner(Config{Schedule: "not a schedule", MaxAge: time.Hour}, new(mockDeleter), nil, testLogger())
	assert.ErrorContains(t, err, "invalid retention schedule")
}

func TestRunOnceUsesCutoff(t *testing.T) {
	store := new(mockDeleter)
	recorder := &countingRecorder{}
	now := time.UnixMilli(10 * 3600 * 1000)

	store.On("DeleteBefore", mock.Anything, now.Add(-2*time.Hour).UnixMilli()).Return(int64(7), nil)

	p, err := NewPruner(Config{Schedule: "@every 1h", MaxAge: 2 * time.Hour}, store, recorder, testLogger())
	require.NoError(t, err)
	p.now = func() time.Time { return now }

	deleted, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, int64(7), recorder.total)
	store.AssertExpectations(t)
}

func TestRunOnceError(t *testing.T) {
	store := new(mockDeleter)
	store.On("DeleteBefore", mock.Anything, mock.Anything).Return(int64(0), errors.New("database is locked"))

	p, err := NewPruner(Config{Schedule: "@every 1h", MaxAge: time.Hour}, store, nil, testLogger())
	require.NoError(t, err)

	_, err = p.RunOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestPrunerRunsOnSchedule(t *testing.T) {
	store := new(mockDeleter)
	ran := make(chan struct{}, 1)
	store.On("DeleteBefore", mock.Anything, mock.Anything).Return(int64(1), nil).Run(func(mock.Arguments) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	p, err := NewPruner(Config{Schedule: "@every 1s", MaxAge: time.Hour}, store, nil, testLogger())
	require.NoError(t, err)

	require.NoError(t, p.Start())
	assert.Error(t, p.Start())
	assert.False(t, p.NextRun().IsZero())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled prune did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))
}
