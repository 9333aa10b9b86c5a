// Package template renders step configuration strings against the execution
// context, used by document generation and notification bricks.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dealgrid/playrun/pkg/models"
)

// RenderWithContext renders the input template against the workstream's
// fields, upstream node outputs and the acting user.
func RenderWithContext(input string, execCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"fields":       workstreamFields(execCtx.Workstream),
		"node_outputs": execCtx.NodeOutputs,
		"workstream": map[string]any{
			"id":      workstreamID(execCtx.Workstream),
			"play_id": workstreamPlayID(execCtx.Workstream),
			"stage":   workstreamStage(execCtx.Workstream),
		},
		"user": userData(execCtx.User),
	}

	return Render(input, data)
}

// Render parses and executes the template, coercing the result back to JSON,
// number or boolean where it looks like one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("render").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
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

func workstreamFields(workstream *models.Workstream) map[string]any {
	if workstream == nil {
		return map[string]any{}
	}

	return workstream.Fields
}

func workstreamID(workstream *models.Workstream) string {
	if workstream == nil {
		return ""
	}

	return workstream.ID
}

func workstreamPlayID(workstream *models.Workstream) string {
	if workstream == nil {
		return ""
	}

	return workstream.PlayID
}

func workstreamStage(workstream *models.Workstream) string {
	if workstream == nil {
		return ""
	}

	return workstream.Stage
}

func userData(user *models.CurrentUser) map[string]any {
	if user == nil {
		return map[string]any{}
	}

	return map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}
}
