// Package template renders step configuration strings against run context
// at activation time, so authored flows can reference run variables.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/voyflow/voyflow/pkg/models"
)

// RenderConfig renders every string value of a step config against the
// run's variables. Values that fail to render are passed through untouched;
// templating is a convenience, not a gate.
func RenderConfig(config map[string]any, run *models.FlowRun) map[string]any {
	if len(config) == 0 {
		return config
	}

	data := map[string]any{
		"variables": run.Variables,
		"vars":      run.Variables,
		"run": map[string]any{
			"id":      run.ID,
			"flow_id": run.FlowID,
		},
	}

	out := make(map[string]any, len(config))

	for k, v := range config {
		str, ok := v.(string)
		if !ok || !strings.Contains(str, "{{") {
			out[k] = v

			continue
		}

		rendered, err := Render(str, data)
		if err != nil {
			out[k] = v

			continue
		}

		out[k] = rendered
	}

	return out
}

// Render executes one template string and coerces the output back into a
// JSON-shaped value where possible.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
