package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocumentJSON_ValidDocument(t *testing.T) {
	doc := `{
		"id": "flow-1",
		"name": "Vendor Onboarding",
		"status": "draft",
		"milestones": [{"id": "m-1", "name": "Kickoff", "sequence": 10}],
		"steps": [
			{"id": "step-1", "type": "FORM", "name": "Intake"},
			{
				"id": "branch-1",
				"type": "SINGLE_CHOICE_BRANCH",
				"paths": [
					{"path_id": "p-1", "steps": [{"id": "nested-1", "type": "TODO"}]}
				]
			}
		]
	}`

	issues, err := ValidateDocumentJSON([]byte(doc))

	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateDocumentJSON_UnknownStepTypeRejected(t *testing.T) {
	doc := `{
		"id": "flow-1",
		"name": "Vendor Onboarding",
		"steps": [{"id": "step-1", "type": "TELEPORT"}]
	}`

	issues, err := ValidateDocumentJSON([]byte(doc))

	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestValidateDocumentJSON_MissingRequiredFields(t *testing.T) {
	doc := `{"name": "No id and no steps"}`

	issues, err := ValidateDocumentJSON([]byte(doc))

	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestValidateDocumentJSON_NestedStepsValidatedRecursively(t *testing.T) {
	doc := `{
		"id": "flow-1",
		"name": "Vendor Onboarding",
		"steps": [
			{
				"id": "decision-1",
				"type": "DECISION",
				"outcomes": [
					{"outcome_id": "yes", "steps": [{"id": "nested-1", "type": "NOT_A_TYPE"}]}
				]
			}
		]
	}`

	issues, err := ValidateDocumentJSON([]byte(doc))

	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}
