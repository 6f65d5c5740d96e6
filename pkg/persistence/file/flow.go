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

// FlowRepository stores flow documents as JSON files under <root>/flows.
type FlowRepository struct {
	root string
}

func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (r *FlowRepository) dir() string {
	return path.Join(r.root, "flows")
}

func (r *FlowRepository) filePath(id string) string {
	return path.Join(r.dir(), id+".json")
}

func (r *FlowRepository) Save(_ context.Context, flow *models.FlowDocument) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	if err := os.WriteFile(r.filePath(flow.ID), data, 0o644); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) GetByID(_ context.Context, id string) (*models.FlowDocument, error) {
	data, err := os.ReadFile(r.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	var flow models.FlowDocument
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, persistence.NewFlowError("GetByID", id, err)
	}

	return &flow, nil
}

func (r *FlowRepository) List(ctx context.Context) ([]*models.FlowDocument, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.FlowDocument, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flowID := file[:len(file)-5] // Remove .json extension

		flow, err := r.GetByID(ctx, flowID)
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (r *FlowRepository) Delete(_ context.Context, id string) error {
	if err := os.Remove(r.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("Delete", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("Delete", id, err)
	}

	return nil
}
