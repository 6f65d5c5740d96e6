// Package timers implements the engine's timer collaborator: recurring
// reminders on cron specs plus one-shot overdue and escalation timers per
// step execution.
package timers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/voyflow/voyflow/pkg/models"
)

// escalationDelay is how long past due a step sits before escalating.
const escalationDelay = 24 * time.Hour

// Handler receives timer firings. Implementations typically enqueue a
// notification job keyed by the step execution id.
type Handler interface {
	OnReminder(stepExecutionID string)
	OnOverdue(stepExecutionID string)
	OnEscalation(stepExecutionID string)
}

// Scheduler tracks active timers per step execution. It satisfies the
// execution.TimerScheduler hook.
type Scheduler struct {
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string][]cron.EntryID
	oneShot map[string][]*time.Timer
}

func NewScheduler(handler Handler, logger *slog.Logger) *Scheduler {
	c := cron.New()
	c.Start()

	return &Scheduler{
		handler: handler,
		logger:  logger.With("module", "timer_scheduler"),
		cron:    c,
		entries: make(map[string][]cron.EntryID),
		oneShot: make(map[string][]*time.Timer),
	}
}

// ScheduleTimers installs the step's reminder cron plus overdue and
// escalation timers derived from its due date. The run-level due date caps
// the step's own when it is earlier.
func (s *Scheduler) ScheduleTimers(_ context.Context, exec *models.StepExecution, due *models.DueSpec, runDueAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	execID := exec.ID

	if due != nil && due.RemindCron != "" {
		entryID, err := s.cron.AddFunc(due.RemindCron, func() {
			s.handler.OnReminder(execID)
		})
		if err != nil {
			s.logger.Error("Invalid reminder cron spec",
				"step_execution_id", execID,
				"spec", due.RemindCron,
				"error", err)
		} else {
			s.entries[execID] = append(s.entries[execID], entryID)
		}
	}

	dueAt := effectiveDue(exec.DueAt, runDueAt)
	if dueAt == nil {
		return nil
	}

	overdueIn := time.Until(*dueAt)
	if overdueIn < 0 {
		overdueIn = 0
	}

	s.oneShot[execID] = append(s.oneShot[execID], time.AfterFunc(overdueIn, func() {
		s.handler.OnOverdue(execID)
	}))

	if due != nil && due.Escalate {
		s.oneShot[execID] = append(s.oneShot[execID], time.AfterFunc(overdueIn+escalationDelay, func() {
			s.handler.OnEscalation(execID)
		}))
	}

	return nil
}

// CancelTimers drops every pending timer for the step execution.
func (s *Scheduler) CancelTimers(_ context.Context, stepExecutionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries[stepExecutionID] {
		s.cron.Remove(id)
	}

	delete(s.entries, stepExecutionID)

	for _, t := range s.oneShot[stepExecutionID] {
		t.Stop()
	}

	delete(s.oneShot, stepExecutionID)

	return nil
}

// Stop halts the scheduler and every timer it owns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Stop()

	for id, ts := range s.oneShot {
		for _, t := range ts {
			t.Stop()
		}

		delete(s.oneShot, id)
	}
}

func effectiveDue(stepDue, runDue *time.Time) *time.Time {
	switch {
	case stepDue == nil:
		return runDue
	case runDue == nil:
		return stepDue
	case runDue.Before(*stepDue):
		return runDue
	default:
		return stepDue
	}
}
