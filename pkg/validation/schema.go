package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// flowSchema is the JSON shape of a flow document as stored and exchanged.
// Structural invariants that need tree context (id uniqueness, goto
// targets) live in ValidateFlow; the schema guards field shapes.
const flowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "steps"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 3},
    "description": {"type": "string"},
    "status": {"enum": ["draft", "published", "unpublished"]},
    "milestones": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "sequence": {"type": "integer"}
        }
      }
    },
    "steps": {"type": "array", "items": {"$ref": "#/definitions/step"}}
  },
  "definitions": {
    "step": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {
          "enum": [
            "FORM", "APPROVAL", "FILE_REQUEST", "ESIGN", "TODO",
            "HTTP_REQUEST", "WEBHOOK", "SUB_FLOW",
            "SINGLE_CHOICE_BRANCH", "MULTI_CHOICE_BRANCH", "PARALLEL_BRANCH",
            "DECISION", "GOTO", "TERMINATE", "GOTO_DESTINATION"
          ]
        },
        "name": {"type": "string"},
        "config": {"type": "object"},
        "milestone_id": {"type": "string"},
        "completion_mode": {"enum": ["ANY_ONE", "ALL", "MAJORITY"]},
        "goto_target_id": {"type": "string"},
        "terminate_status": {"enum": ["completed", "cancelled", "rejected"]},
        "paths": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["path_id"],
            "properties": {
              "path_id": {"type": "string", "minLength": 1},
              "condition": {"type": "object"},
              "steps": {"type": "array", "items": {"$ref": "#/definitions/step"}}
            }
          }
        },
        "outcomes": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["outcome_id"],
            "properties": {
              "outcome_id": {"type": "string", "minLength": 1},
              "label": {"type": "string"},
              "steps": {"type": "array", "items": {"$ref": "#/definitions/step"}}
            }
          }
        }
      }
    }
  }
}`

// ValidateDocumentJSON validates raw flow document JSON against the schema.
// Returned issues carry the schema validator's field descriptions.
func ValidateDocumentJSON(data []byte) ([]Issue, error) {
	schemaLoader := gojsonschema.NewStringLoader(flowSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, Issue{
			Code:    "schema_" + desc.Type(),
			Message: fmt.Sprintf("%s: %s", desc.Field(), desc.Description()),
		})
	}

	return issues, nil
}
