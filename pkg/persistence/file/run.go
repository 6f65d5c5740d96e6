package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/voyflow/voyflow/pkg/models"
	"github.com/voyflow/voyflow/pkg/persistence"
)

// RunRepository stores flow runs as JSON files under <root>/runs.
type RunRepository struct {
	root string
}

func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (r *RunRepository) dir() string {
	return path.Join(r.root, "runs")
}

func (r *RunRepository) filePath(id string) string {
	return path.Join(r.dir(), id+".json")
}

func (r *RunRepository) Save(_ context.Context, run *models.FlowRun) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	if err := os.WriteFile(r.filePath(run.ID), data, 0o644); err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	return nil
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.FlowRun, error) {
	data, err := os.ReadFile(r.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: persistence.ErrRunNotFound}
		}

		return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: err}
	}

	var run models.FlowRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: err}
	}

	return &run, nil
}

func (r *RunRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.FlowRun, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.FlowRun, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		runID := file[:len(file)-5] // Remove .json extension

		run, err := r.GetByID(ctx, runID)
		if err != nil {
			return nil, err
		}

		if run.FlowID == flowID {
			runs = append(runs, run)
		}
	}

	return runs, nil
}

// ExecutionRepository stores the step executions of a run as a single JSON
// file under <root>/executions, matching the unit the advancement engine
// hands back.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) dir() string {
	return path.Join(r.root, "executions")
}

func (r *ExecutionRepository) filePath(runID string) string {
	return path.Join(r.dir(), runID+".json")
}

func (r *ExecutionRepository) SaveAll(_ context.Context, runID string, execs []*models.StepExecution) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.RunError{Op: "SaveAll", RunID: runID, Err: err}
	}

	data, err := json.MarshalIndent(execs, "", "  ")
	if err != nil {
		return &persistence.RunError{Op: "SaveAll", RunID: runID, Err: err}
	}

	if err := os.WriteFile(r.filePath(runID), data, 0o644); err != nil {
		return &persistence.RunError{Op: "SaveAll", RunID: runID, Err: err}
	}

	return nil
}

func (r *ExecutionRepository) ListByRun(_ context.Context, runID string) ([]*models.StepExecution, error) {
	data, err := os.ReadFile(r.filePath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.StepExecution{}, nil
		}

		return nil, &persistence.RunError{Op: "ListByRun", RunID: runID, Err: err}
	}

	var execs []*models.StepExecution
	if err := json.Unmarshal(data, &execs); err != nil {
		return nil, &persistence.RunError{Op: "ListByRun", RunID: runID, Err: err}
	}

	return execs, nil
}
