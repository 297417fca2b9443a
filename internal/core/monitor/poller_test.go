package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStatsSource struct {
	mock.Mock
}

func (m *mockStatsSource) FetchStats(ctx context.Context, satID string, windowSeconds int) (aggregate.Report, error) {
	args := m.Called(ctx, satID, windowSeconds)
	return args.Get(0).(aggregate.Report), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordPollCycle()                  { m.Called() }
func (m *mockRecorder) RecordPollFailure()                { m.Called() }
func (m *mockRecorder) RecordAlert(kind, severity string) { m.Called(kind, severity) }

type capturePublisher struct {
	mu      sync.Mutex
	updates []string
}

func (c *capturePublisher) PublishEntityState(satID string, _ EntityState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, satID)
}

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func healthyReport(satID string) aggregate.Report {
	return aggregate.Report{OK: true, WindowStats: aggregate.WindowStats{
		SatID: satID, WindowSeconds: 600, Count: 10, LatencyP95Ms: 50, DropRate: 0.01, AvgLinkQuality: 0.95,
	}}
}

func newTestPoller(t *testing.T, source StatsSource, watchlist ...string) (*Poller, *StateStore, *Counters, *ConfigStore) {
	t.Helper()
	store, err := NewConfigStore(alerting.DefaultThresholds(), watchlist)
	require.NoError(t, err)
	state := NewStateStore()
	counters := NewCounters()
	return NewPoller(source, store, state, counters, nil, 20*time.Millisecond, testLogger()), state, counters, store
}

func TestRunCycleStoresStateAndAlerts(t *testing.T) {
	source := new(mockStatsSource)
	spiky := healthyReport("SAT-002")
	spiky.LatencyP95Ms = 700
	spiky.DropRate = 0.3

	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(healthyReport("SAT-001"), nil)
	source.On("FetchStats", mock.Anything, "SAT-002", 600).Return(spiky, nil)

	poller, state, counters, _ := newTestPoller(t, source, "SAT-001", "SAT-002")
	recorder := new(mockRecorder)
	recorder.On("RecordPollCycle").Once()
	recorder.On("RecordAlert", "LATENCY_P95", "MED").Once()
	recorder.On("RecordAlert", "DROP_RATE", "HIGH").Once()
	poller.SetRecorder(recorder)
	publisher := &capturePublisher{}
	poller.SetPublisher(publisher)

	poller.RunCycle(context.Background())

	s1, ok := state.Get("SAT-001")
	require.True(t, ok)
	assert.Empty(t, s1.Alerts)

	s2, ok := state.Get("SAT-002")
	require.True(t, ok)
	assert.Equal(t, []alerting.Kind{alerting.KindLatencyP95, alerting.KindDropRate}, []alerting.Kind{s2.Alerts[0].Kind, s2.Alerts[1].Kind})

	assert.Equal(t, int64(1), counters.Cycles())
	assert.Zero(t, counters.Failures())
	assert.Equal(t, int64(1), counters.AlertCounts()[alerting.KindDropRate])
	assert.Equal(t, []string{"SAT-001", "SAT-002"}, publisher.updates)

	source.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestRunCycleFailureKeepsStaleState(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(healthyReport("SAT-001"), nil).Once()
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(aggregate.Report{}, errors.New("aggregator returned status 503")).Once()

	poller, state, counters, _ := newTestPoller(t, source, "SAT-001")

	poller.RunCycle(context.Background())
	poller.RunCycle(context.Background())

	got, ok := state.Get("SAT-001")
	require.True(t, ok)
	assert.True(t, got.Metrics.OK)
	assert.Equal(t, 10, got.Metrics.Count)

	assert.Equal(t, int64(2), counters.Cycles())
	assert.Equal(t, int64(1), counters.Failures())
	source.AssertExpectations(t)
}

func TestRunCycleFailureNeverCreatesState(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(aggregate.Report{}, errors.New("connection refused"))

	poller, state, counters, _ := newTestPoller(t, source, "SAT-001")
	recorder := new(mockRecorder)
	recorder.On("RecordPollCycle")
	recorder.On("RecordPollFailure").Once()
	poller.SetRecorder(recorder)

	poller.RunCycle(context.Background())

	_, ok := state.Get("SAT-001")
	assert.False(t, ok)
	assert.Equal(t, int64(1), counters.Failures())
	recorder.AssertExpectations(t)
}

func TestRunCycleUpstreamNotOK(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(aggregate.FailedReport("database is locked"), nil)

	poller, state, counters, _ := newTestPoller(t, source, "SAT-001")
	poller.RunCycle(context.Background())

	got, ok := state.Get("SAT-001")
	require.True(t, ok)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, alerting.KindAggregatorError, got.Alerts[0].Kind)
	assert.Equal(t, alerting.SeverityHigh, got.Alerts[0].Severity)
	assert.Zero(t, counters.Failures())
	assert.Equal(t, int64(1), counters.AlertCounts()[alerting.KindAggregatorError])
}

func TestRunCycleUsesThresholdSnapshot(t *testing.T) {
	source := new(mockStatsSource)
	poller, _, _, store := newTestPoller(t, source, "SAT-001", "SAT-002")

	window := 30
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(healthyReport("SAT-001"), nil).Run(func(mock.Arguments) {
		// a config change mid-cycle applies from the next cycle
		_, err := store.MergeThresholds(alerting.ThresholdsPatch{WindowSeconds: &window})
		require.NoError(t, err)
	}).Once()
	source.On("FetchStats", mock.Anything, "SAT-002", 600).Return(healthyReport("SAT-002"), nil).Once()

	poller.RunCycle(context.Background())

	source.On("FetchStats", mock.Anything, "SAT-001", 30).Return(healthyReport("SAT-001"), nil).Once()
	source.On("FetchStats", mock.Anything, "SAT-002", 30).Return(healthyReport("SAT-002"), nil).Once()

	poller.RunCycle(context.Background())
	source.AssertExpectations(t)
}

func TestRunCycleStopBetweenEntitiesDoesNotCancelFetch(t *testing.T) {
	source := new(mockStatsSource)
	poller, state, counters, _ := newTestPoller(t, source, "SAT-001", "SAT-002")

	ctx, cancel := context.WithCancel(context.Background())
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Run(func(args mock.Arguments) {
		cancel()
		fetchCtx := args.Get(0).(context.Context)
		assert.NoError(t, fetchCtx.Err(), "in-flight fetch must not see the stop")
	}).Return(healthyReport("SAT-001"), nil).Once()

	poller.RunCycle(ctx)

	_, ok := state.Get("SAT-001")
	assert.True(t, ok)
	_, ok = state.Get("SAT-002")
	assert.False(t, ok)
	assert.Equal(t, int64(1), counters.Cycles())
	source.AssertNotCalled(t, "FetchStats", mock.Anything, "SAT-002", mock.Anything)
}

func TestPollerStartStop(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(healthyReport("SAT-001"), nil)

	poller, state, counters, _ := newTestPoller(t, source, "SAT-001")

	require.NoError(t, poller.Start(context.Background()))
	assert.Error(t, poller.Start(context.Background()), "double start")

	assert.Eventually(t, func() bool { return counters.Cycles() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, poller.Stop())
	require.NoError(t, poller.Stop())

	cycles := counters.Cycles()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, cycles, counters.Cycles(), "no cycles after stop")

	_, ok := state.Get("SAT-001")
	assert.True(t, ok)
}

func TestPollerFirstCycleIsImmediate(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, "SAT-001", 600).Return(healthyReport("SAT-001"), nil)

	store, err := NewConfigStore(alerting.DefaultThresholds(), []string{"SAT-001"})
	require.NoError(t, err)
	counters := NewCounters()
	poller := NewPoller(source, store, NewStateStore(), counters, nil, time.Hour, testLogger())

	require.NoError(t, poller.Start(context.Background()))
	defer poller.Stop()

	assert.Eventually(t, func() bool { return counters.Cycles() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPollerRunExitsOnContextCancel(t *testing.T) {
	source := new(mockStatsSource)
	source.On("FetchStats", mock.Anything, mock.Anything, mock.Anything).Return(healthyReport("SAT-001"), nil)
	poller, _, _, _ := newTestPoller(t, source, "SAT-001")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
