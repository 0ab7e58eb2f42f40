// Package sched runs the standing watchlist jobs on Pacific wall time.
package sched

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is a named watchlist run with a weekly firing rule.
type Job struct {
	Name   string
	Days   []time.Weekday
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// Scheduler fires jobs at their next wall-clock occurrence in loc.
type Scheduler struct {
	loc  *time.Location
	jobs []Job
	now  func() time.Time
}

func New(loc *time.Location) *Scheduler {
	return &Scheduler{loc: loc, now: time.Now}
}

// WithClock overrides the clock. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) Add(j Job) {
	s.jobs = append(s.jobs, j)
}

// NextRun computes the earliest upcoming fire time for a job, strictly
// after now.
func (j Job) NextRun(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	allowed := make(map[time.Weekday]bool, len(j.Days))
	for _, d := range j.Days {
		allowed[d] = true
	}
	for add := 0; add <= 7; add++ {
		day := now.AddDate(0, 0, add)
		if !allowed[day.Weekday()] {
			continue
		}
		fire := time.Date(day.Year(), day.Month(), day.Day(), j.Hour, j.Minute, 0, 0, loc)
		if fire.After(now) {
			return fire
		}
	}
	// unreachable with a non-empty Days set
	return now.AddDate(0, 0, 7)
}

// Run blocks, firing each job at its schedule until the context ends. Job
// failures are logged and the schedule keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		<-ctx.Done()
		return nil
	}
	log.Info().Int("jobs", len(s.jobs)).Str("location", s.loc.String()).
		Msg("scheduler started")

	for {
		now := s.now().In(s.loc)
		type pending struct {
			job  Job
			fire time.Time
		}
		queue := make([]pending, 0, len(s.jobs))
		for _, j := range s.jobs {
			queue = append(queue, pending{job: j, fire: j.NextRun(now, s.loc)})
		}
		sort.Slice(queue, func(i, k int) bool { return queue[i].fire.Before(queue[k].fire) })

		next := queue[0]
		log.Info().Str("job", next.job.Name).Time("at", next.fire).Msg("next scheduled run")

		timer := time.NewTimer(next.fire.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		log.Info().Str("job", next.job.Name).Msg("scheduled run starting")
		if err := next.job.Run(ctx); err != nil {
			log.Error().Err(err).Str("job", next.job.Name).Msg("scheduled run failed")
		} else {
			log.Info().Str("job", next.job.Name).Msg("scheduled run finished")
		}
	}
}

// Weekdays is the Mon-Fri firing rule.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}
