package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCountsAndErrors(t *testing.T) {
	m := NewMetricsMiddleware(DefaultMetricsConfig())

	m.Start("tasks", 100).End(nil)
	m.Start("tasks", 200).End(nil)
	m.Start("tasks", 100).End(errors.New("boom"))
	m.Start("newtask", 100).End(nil)

	snaps := m.Snapshot()

	tasks := snaps["tasks"]
	assert.Equal(t, int64(3), tasks.Count)
	assert.Equal(t, int64(1), tasks.Errors)
	assert.Equal(t, 2, tasks.UniqueUsers)
	assert.False(t, tasks.LastInvoked.IsZero())

	newtask := snaps["newtask"]
	assert.Equal(t, int64(1), newtask.Count)
	assert.Equal(t, int64(0), newtask.Errors)
}

func TestMetricsDurations(t *testing.T) {
	m := NewMetricsMiddleware(DefaultMetricsConfig())

	rc := m.Start("help", 100)
	time.Sleep(5 * time.Millisecond)
	rc.End(nil)

	snap := m.Snapshot()["help"]
	assert.Greater(t, snap.MinDuration, time.Duration(0))
	assert.GreaterOrEqual(t, snap.MaxDuration, snap.MinDuration)
	assert.GreaterOrEqual(t, snap.AvgDuration, snap.MinDuration)
	assert.LessOrEqual(t, snap.AvgDuration, snap.MaxDuration)
}

func TestMetricsSlowRequestHook(t *testing.T) {
	var slowCommand string
	var slowUser int64

	cfg := MetricsConfig{
		SlowRequestThreshold: time.Nanosecond,
		OnSlowRequest: func(command string, telegramID int64, duration time.Duration) {
			slowCommand = command
			slowUser = telegramID
		},
	}
	m := NewMetricsMiddleware(cfg)

	rc := m.Start("remind", 42)
	time.Sleep(time.Millisecond)
	rc.End(nil)

	assert.Equal(t, "remind", slowCommand)
	assert.Equal(t, int64(42), slowUser)
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetricsMiddleware(DefaultMetricsConfig())
	m.Start("tasks", 100).End(nil)

	first := m.Snapshot()
	m.Start("tasks", 100).End(nil)

	assert.Equal(t, int64(1), first["tasks"].Count)
	assert.Equal(t, int64(2), m.Snapshot()["tasks"].Count)
}
