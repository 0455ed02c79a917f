// Package scheduler wraps robfig/cron with named daily jobs that can be
// replaced or removed at runtime.
package scheduler

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/dealposter/internal/model"
)

const (
	DefaultTimezone     = "Asia/Shanghai"
	DefaultMisfireGrace = 300 * time.Second
	DefaultHour         = 8
	DefaultMinute       = 0

	dailyJobPrefix = "fastfood_deals_daily_"
)

// DailyJobID returns the job id used for an owner's daily report.
func DailyJobID(owner string) string {
	return dailyJobPrefix + owner
}

// LoadLocation resolves name, falling back to a fixed UTC+8 zone.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: failed to load timezone %s, using UTC+8: %v", name, err)
		return time.FixedZone("UTC+8", 8*60*60)
	}
	return loc
}

// Scheduler runs daily jobs in a fixed timezone.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	grace    time.Duration
	entryMap map[string]cron.EntryID
	jobs     map[string]model.ScheduledJob
	mu       sync.RWMutex
	running  bool
	now      func() time.Time
}

// New creates a stopped scheduler. A non-positive grace uses DefaultMisfireGrace.
func New(loc *time.Location, grace time.Duration) *Scheduler {
	if loc == nil {
		loc = LoadLocation(DefaultTimezone)
	}
	if grace <= 0 {
		grace = DefaultMisfireGrace
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(
				cron.Recover(cron.DefaultLogger),
				cron.SkipIfStillRunning(cron.DefaultLogger),
			),
		),
		loc:      loc,
		grace:    grace,
		entryMap: make(map[string]cron.EntryID),
		jobs:     make(map[string]model.ScheduledJob),
		now:      time.Now,
	}
}

// Start starts the scheduler. Calling it again is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	log.Printf("Scheduler started (%s) with %d jobs", s.loc, len(s.entryMap))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// UpsertDailyJob schedules fn every day at hour:minute, replacing any job
// registered under the same id.
func (s *Scheduler) UpsertDailyJob(id string, hour, minute int, fn func()) error {
	if err := validateTime(hour, minute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(id)

	spec := fmt.Sprintf("0 %d %d * * *", minute, hour)
	entryID, err := s.cron.AddFunc(spec, s.guard(id, hour, minute, fn))
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.entryMap[id] = entryID
	s.jobs[id] = model.ScheduledJob{
		ID:           id,
		Hour:         hour,
		Minute:       minute,
		MisfireGrace: s.grace,
	}

	log.Printf("Scheduled job %s daily at %02d:%02d", id, hour, minute)
	return nil
}

// RemoveJob removes the job registered under id, if any.
func (s *Scheduler) RemoveJob(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeLocked(id) {
		log.Printf("Removed job %s", id)
	}
}

func (s *Scheduler) removeLocked(id string) bool {
	entryID, ok := s.entryMap[id]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entryMap, id)
	delete(s.jobs, id)
	return true
}

// NextRun returns the next firing time of a job, or nil if it is not scheduled.
func (s *Scheduler) NextRun(id string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunLocked(id)
}

func (s *Scheduler) nextRunLocked(id string) *time.Time {
	entryID, ok := s.entryMap[id]
	if !ok {
		return nil
	}
	entry := s.cron.Entry(entryID)
	next := entry.Next
	if next.IsZero() && entry.Schedule != nil {
		next = entry.Schedule.Next(s.now().In(s.loc))
	}
	if next.IsZero() {
		return nil
	}
	return &next
}

// Jobs returns the registered jobs sorted by id.
func (s *Scheduler) Jobs() []model.ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]model.ScheduledJob, 0, len(s.jobs))
	for id, job := range s.jobs {
		job.Next = s.nextRunLocked(id)
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Location returns the timezone jobs are evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// guard skips a firing that arrives more than the misfire grace after its
// scheduled instant, e.g. after the host was suspended.
func (s *Scheduler) guard(id string, hour, minute int, fn func()) func() {
	return func() {
		now := s.now().In(s.loc)
		late := now.Sub(lastOccurrence(now, hour, minute))
		if late > s.grace {
			log.Printf("Warning: job %s fired %s late, skipping this run", id, late.Round(time.Second))
			return
		}
		fn()
	}
}

// lastOccurrence is the most recent hour:minute at or before now, in now's zone.
func lastOccurrence(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if t.After(now) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// ParseScheduleTime parses "HH:MM" (24h). Single-digit hours and minutes are
// accepted, so "8:5" is 08:05.
func ParseScheduleTime(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid schedule time %q: want HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", value, err)
	}
	if err := validateTime(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// ScheduleTimeOrDefault parses value and falls back to 08:00 when it is malformed.
func ScheduleTimeOrDefault(value string) (int, int) {
	hour, minute, err := ParseScheduleTime(value)
	if err != nil {
		log.Printf("Warning: %v, using %02d:%02d", err, DefaultHour, DefaultMinute)
		return DefaultHour, DefaultMinute
	}
	return hour, minute
}

func validateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour out of range: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute out of range: %d", minute)
	}
	return nil
}
