// Package execution implements the run advancement engine: completing step
// executions, computing the next step(s) from the flow tree, evaluating
// group completion, and signalling run completion.
package execution

import (
	"context"
	"time"

	"github.com/voyflow/voyflow/pkg/models"
)

// ReviewVerdict is the outcome of a synchronous review gate.
type ReviewVerdict string

const (
	ReviewApprove ReviewVerdict = "approve"
	ReviewRevise  ReviewVerdict = "revise"
)

// Notifier receives run lifecycle notifications. Implementations are black
// boxes; errors are logged and never roll back a committed transition.
type Notifier interface {
	RunStarted(ctx context.Context, run *models.FlowRun, firstStepID string) error
	RunCompleted(ctx context.Context, run *models.FlowRun) error
	RunTerminated(ctx context.Context, run *models.FlowRun) error
	StepActivated(ctx context.Context, run *models.FlowRun, exec *models.StepExecution, step *models.Step) error
	StepCompleted(ctx context.Context, run *models.FlowRun, exec *models.StepExecution) error
}

// TimerScheduler schedules reminder, overdue and escalation timers for an
// activated step execution, and cancels them once it settles.
type TimerScheduler interface {
	ScheduleTimers(ctx context.Context, exec *models.StepExecution, due *models.DueSpec, runDueAt *time.Time) error
	CancelTimers(ctx context.Context, stepExecutionID string) error
}

// TokenIssuer mints one-time access tokens for external contact assignees.
type TokenIssuer interface {
	CreateAccessToken(ctx context.Context, stepExecutionID string) (string, error)
}

// Mailer requests delivery of a task-assignment email to an external
// contact carrying their access token.
type Mailer interface {
	SendTaskAssignment(ctx context.Context, assignee models.Assignee, token string) error
}

// Reviewer runs the synchronous review gate on submitted result data.
type Reviewer interface {
	Review(ctx context.Context, step *models.Step, resultData map[string]any) (ReviewVerdict, error)
}

// SubFlowStarter starts a child flow run for a SUB_FLOW step.
type SubFlowStarter interface {
	StartSubFlow(ctx context.Context, step *models.Step, parentRun *models.FlowRun) error
}

// AutoExecutor is probed after activation of an automation step so fully
// automated steps chain without waiting for a human action. The executor is
// expected to complete the step itself, re-entering the advancement engine
// with auto-execution suppressed.
type AutoExecutor interface {
	TriggerAutoExecution(ctx context.Context, exec *models.StepExecution, step *models.Step, config map[string]any) error
}

// Hooks bundles the engine's external collaborators. Any nil field is
// simply skipped.
type Hooks struct {
	Notifier Notifier
	Timers   TimerScheduler
	Tokens   TokenIssuer
	Mailer   Mailer
	Reviewer Reviewer
	SubFlows SubFlowStarter
	AutoExec AutoExecutor
}
