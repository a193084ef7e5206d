package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildClassifySchema returns the JSON-Schema for a single classify response.
// Used locally to reject malformed backend payloads before interpreting them.
func BuildClassifySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"decision": map[string]any{
				"type": "string",
				"enum": []string{"routed", "needs_enrichment", "error"},
			},
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"decision"},
	}
}

// BuildClassifyAllSchema returns the JSON-Schema for the batched classify response.
func BuildClassifyAllSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"file":     map[string]any{"type": "string", "minLength": 1},
						"decision": map[string]any{
							"type": "string",
							"enum": []string{"routed", "needs_enrichment", "error"},
						},
						"message": map[string]any{"type": "string"},
					},
					"required": []string{"file", "decision"},
				},
			},
		},
		"required": []string{"results"},
	}
}

// BuildEnrichSchema returns the JSON-Schema for a single enrich response.
func BuildEnrichSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"decision": map[string]any{
				"type": "string",
				"enum": []string{"routed", "archived", "error"},
			},
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"decision"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
