package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shanghai = LoadLocation(DefaultTimezone)

func newTestScheduler(now time.Time) *Scheduler {
	s := New(shanghai, 0)
	s.now = func() time.Time { return now }
	return s
}

func TestUpsertDailyJob_ReplacesExisting(t *testing.T) {
	now := time.Date(2026, 10, 15, 6, 0, 0, 0, shanghai)
	s := newTestScheduler(now)
	id := DailyJobID("group1")

	require.NoError(t, s.UpsertDailyJob(id, 8, 0, func() {}))
	require.NoError(t, s.UpsertDailyJob(id, 9, 30, func() {}))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, 9, jobs[0].Hour)
	assert.Equal(t, 30, jobs[0].Minute)
	assert.Equal(t, DefaultMisfireGrace, jobs[0].MisfireGrace)
	assert.Len(t, s.cron.Entries(), 1)

	next := s.NextRun(id)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 30, 0, 0, shanghai), next.In(shanghai))
}

func TestUpsertDailyJob_RejectsOutOfRange(t *testing.T) {
	s := newTestScheduler(time.Now())

	assert.Error(t, s.UpsertDailyJob("job", 24, 0, func() {}))
	assert.Error(t, s.UpsertDailyJob("job", 8, 60, func() {}))
	assert.Empty(t, s.Jobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(time.Now())

	// Removing an unknown job is a no-op.
	s.RemoveJob("missing")

	require.NoError(t, s.UpsertDailyJob("job", 8, 0, func() {}))
	s.RemoveJob("job")
	s.RemoveJob("job")

	assert.Empty(t, s.Jobs())
	assert.Nil(t, s.NextRun("job"))
	assert.Empty(t, s.cron.Entries())
}

func TestNextRun_RollsOverToTomorrow(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, shanghai)
	s := newTestScheduler(now)

	require.NoError(t, s.UpsertDailyJob("job", 8, 0, func() {}))

	next := s.NextRun("job")
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, shanghai), next.In(shanghai))
}

func TestGuard_SkipsMisfiredRuns(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"on time", time.Date(2026, 10, 15, 8, 0, 1, 0, shanghai), true},
		{"within grace", time.Date(2026, 10, 15, 8, 4, 59, 0, shanghai), true},
		{"beyond grace", time.Date(2026, 10, 15, 8, 5, 1, 0, shanghai), false},
		{"next morning", time.Date(2026, 10, 16, 7, 59, 0, 0, shanghai), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(tt.now)
			ran := false
			s.guard("job", 8, 0, func() { ran = true })()
			assert.Equal(t, tt.want, ran)
		})
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s := newTestScheduler(time.Now())

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestProvider_ReturnsSameScheduler(t *testing.T) {
	p := NewProvider(shanghai, 0)

	first := p.Get()
	second := p.EnsureStarted()
	defer second.Stop()

	assert.Same(t, first, second)
	assert.True(t, first.IsRunning())
	assert.Equal(t, shanghai, first.Location())
}

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		value   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"08:00", 8, 0, false},
		{"8:05", 8, 5, false},
		{" 23:59 ", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"12:5", 12, 5, false},
		{"8:5", 8, 5, false},
		{"8:", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			hour, minute, err := ParseScheduleTime(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestScheduleTimeOrDefault(t *testing.T) {
	hour, minute := ScheduleTimeOrDefault("bogus")
	assert.Equal(t, DefaultHour, hour)
	assert.Equal(t, DefaultMinute, minute)

	hour, minute = ScheduleTimeOrDefault("07:45")
	assert.Equal(t, 7, hour)
	assert.Equal(t, 45, minute)
}

func TestLoadLocation_FallsBackToUTC8(t *testing.T) {
	loc := LoadLocation("Not/AZone")
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset)
}
