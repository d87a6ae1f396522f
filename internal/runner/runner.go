// Package runner fires scheduled actions when they come due.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"skillsched/internal/calendar"
	appLog "skillsched/internal/log"
	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
)

// DefaultTick checks for due actions every minute.
const DefaultTick = "* * * * *"

// Dispatcher delivers a due action, e.g. posts the message to its channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, a schedule.ScheduledAction, at time.Time) error
}

// LogDispatcher only logs; it stands in where no chat integration exists.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, a schedule.ScheduledAction, at time.Time) error {
	appLog.Info("scheduled action due",
		"id", a.ID,
		"type", string(a.ScheduleType),
		"channel", a.Channel,
		"summary", a.Summary(),
		"at", at.Format(time.RFC3339),
	)
	return nil
}

// Store is the part of the action store the runner needs.
type Store interface {
	List() []schedule.ScheduledAction
	RecordRun(id string) (schedule.ScheduledAction, error)
}

// Options configure a Runner. Zero values get defaults.
type Options struct {
	// Tick is a standard five-field cron spec.
	Tick     string
	Location *time.Location
	Now      func() time.Time
}

type pending struct {
	rule string
	next time.Time
}

// Runner keeps the next due time of each action in memory. An action seen
// for the first time is scheduled from that moment on; after each run the
// following occurrence is counted from the run itself, so intervals such
// as "every 2 weeks" keep their phase.
type Runner struct {
	store      Store
	dispatcher Dispatcher
	tick       string
	loc        *time.Location
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]pending

	cron *cron.Cron
	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup
}

func New(store Store, dispatcher Dispatcher, opts Options) (*Runner, error) {
	if store == nil {
		return nil, errors.New("runner: store is nil")
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{}
	}
	if opts.Tick == "" {
		opts.Tick = DefaultTick
	}
	if _, err := cron.ParseStandard(opts.Tick); err != nil {
		return nil, fmt.Errorf("runner: tick %q: %w", opts.Tick, err)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		store:      store,
		dispatcher: dispatcher,
		tick:       opts.Tick,
		loc:        opts.Location,
		now:        opts.Now,
		pending:    make(map[string]pending),
		done:       make(chan struct{}),
	}, nil
}

// Start primes the schedule and begins ticking. The runner stops when ctx
// is done or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	logger := cronLogger{}
	r.cron = cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := r.cron.AddFunc(r.tick, func() { r.Tick(ctx, r.now()) }); err != nil {
		return fmt.Errorf("runner: schedule tick: %w", err)
	}
	r.Tick(ctx, r.now())
	r.cron.Start()
	appLog.Info("runner started", "tick", r.tick, "location", r.loc.String())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-ctx.Done():
		case <-r.done:
		}
		<-r.cron.Stop().Done()
	}()
	return nil
}

// Stop halts ticking and waits for a running tick to finish.
func (r *Runner) Stop() {
	r.stop.Do(func() { close(r.done) })
	r.wg.Wait()
	appLog.Info("runner stopped")
}

// Tick dispatches every action due at or before now and returns how many
// were dispatched.
func (r *Runner) Tick(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dispatched := 0
	seen := make(map[string]bool)
	for _, a := range r.store.List() {
		if !a.IsValid() {
			continue
		}
		if remaining, limited := a.Recurrence.RemainingRuns(); limited && remaining == 0 {
			continue
		}
		seen[a.ID] = true

		key, err := ruleKey(a.Recurrence)
		if err != nil {
			appLog.Error("runner: rule failed", err, "id", a.ID)
			continue
		}
		p, ok := r.pending[a.ID]
		if !ok || p.rule != key {
			r.schedule(a, key, now, now)
			continue
		}
		if p.next.After(now) {
			continue
		}

		if err := r.dispatcher.Dispatch(ctx, a, p.next); err != nil {
			appLog.Error("runner: dispatch failed", err, "id", a.ID, "at", p.next.Format(time.RFC3339))
		} else {
			dispatched++
			if _, err := r.store.RecordRun(a.ID); err != nil {
				appLog.Error("runner: record run failed", err, "id", a.ID)
			}
		}
		r.schedule(a, key, p.next, now)
	}
	for id := range r.pending {
		if !seen[id] {
			delete(r.pending, id)
		}
	}
	return dispatched
}

// schedule stores the first occurrence after now counted from anchor. Runs
// missed while the process was down are skipped, not replayed.
func (r *Runner) schedule(a schedule.ScheduledAction, key string, anchor, now time.Time) {
	next, ok, err := a.Recurrence.NextOccurrenceFrom(anchor, now)
	if err == nil && !ok && !anchor.Equal(now) {
		next, ok, err = a.Recurrence.NextOccurrenceFrom(now, now)
	}
	if err != nil || !ok {
		if err != nil {
			appLog.Error("runner: next occurrence failed", err, "id", a.ID)
		}
		delete(r.pending, a.ID)
		return
	}
	r.pending[a.ID] = pending{rule: key, next: next}
	appLog.Debug("runner: next run", "id", a.ID, "at", next.Format(time.RFC3339))
}

// NextRun reports when the runner will next fire the action.
func (r *Runner) NextRun(id string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	return p.next, ok
}

// ruleKey identifies the schedule of a recurrence independent of how many
// runs it has left.
func ruleKey(rec recurrence.Recurrence) (string, error) {
	unlimited := rec.Clone(recurrence.Patch{
		TimesHasRun:     recurrence.Ref(0),
		TotalTimesToRun: recurrence.Ref(calendar.NoInt()),
	})
	s, err := unlimited.RRuleString()
	if err != nil {
		return "", err
	}
	return rec.TimeZone + "|" + s, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
