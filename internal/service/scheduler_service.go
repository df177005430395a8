package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// AlarmManager schedules one callback per key at an exact wall-clock time.
// Registering a key again replaces its previous alarm.
type AlarmManager interface {
	ScheduleAt(key int64, at time.Time, fire func()) error
	Cancel(key int64)
	CanScheduleExact() bool
}

// SchedulerService wraps cron-based jobs: recurring daily and interval jobs,
// plus keyed one-shot alarms.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location

	mu     sync.Mutex
	alarms map[int64]cron.EntryID
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:    loc,
		alarms: make(map[int64]cron.EntryID),
	}
}

// onceSchedule activates a single time and never again.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// ScheduleAt registers fire to run once at at. A time that is not in the
// future runs about a second from now.
func (s *SchedulerService) ScheduleAt(key int64, at time.Time, fire func()) error {
	if fire == nil {
		return fmt.Errorf("schedule alarm %d: nil callback", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.alarms[key]; ok {
		s.cron.Remove(id)
		delete(s.alarms, key)
	}

	if now := time.Now(); !at.After(now) {
		at = now.Add(time.Second)
	}

	var id cron.EntryID
	id = s.cron.Schedule(onceSchedule{at: at.In(s.loc)}, cron.FuncJob(func() {
		s.mu.Lock()
		if current, ok := s.alarms[key]; ok && current == id {
			delete(s.alarms, key)
			s.cron.Remove(id)
		}
		s.mu.Unlock()
		fire()
	}))
	s.alarms[key] = id
	return nil
}

// Cancel drops the alarm for key, if any.
func (s *SchedulerService) Cancel(key int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.alarms[key]; ok {
		s.cron.Remove(id)
		delete(s.alarms, key)
	}
}

// CanScheduleExact is always true: cron fires at second precision.
func (s *SchedulerService) CanScheduleExact() bool {
	return true
}

// Pending reports the keys with an alarm still waiting.
func (s *SchedulerService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alarms)
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

// Remove drops a job registered with ScheduleDaily or ScheduleInterval.
func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
