// Package persistence provides the data storage abstraction for flow
// documents, runs and step executions. The engine itself never talks to
// storage; callers load state through these interfaces and hand it in.
package persistence

import (
	"context"

	"github.com/voyflow/voyflow/pkg/models"
)

type Persistence interface {
	FlowRepository() FlowRepository
	RunRepository() RunRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores flow documents.
type FlowRepository interface {
	Save(ctx context.Context, flow *models.FlowDocument) error
	GetByID(ctx context.Context, id string) (*models.FlowDocument, error)
	List(ctx context.Context) ([]*models.FlowDocument, error)
	Delete(ctx context.Context, id string) error
}

// RunRepository stores flow runs.
type RunRepository interface {
	Save(ctx context.Context, run *models.FlowRun) error
	GetByID(ctx context.Context, id string) (*models.FlowRun, error)
	ListByFlow(ctx context.Context, flowID string) ([]*models.FlowRun, error)
}

// ExecutionRepository stores the step executions of a run as one unit, the
// granularity at which the advancement engine hands state back.
type ExecutionRepository interface {
	SaveAll(ctx context.Context, runID string, execs []*models.StepExecution) error
	ListByRun(ctx context.Context, runID string) ([]*models.StepExecution, error)
}
