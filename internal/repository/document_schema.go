package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const documentSchemaURL = "schema://progress-document.json"

const documentSchema = `{
  "type": "object",
  "required": ["users", "attempts"],
  "properties": {
    "users": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["user_id"],
        "properties": {
          "user_id": {"type": "string"},
          "current_phase": {"enum": ["Foundation", "Mobility", "Advanced"]},
          "skill_progress": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["skill_id", "attempts", "successful_attempts"],
              "properties": {
                "skill_id": {"type": "string"},
                "attempts": {"type": "integer", "minimum": 0},
                "successful_attempts": {"type": "integer", "minimum": 0},
                "success_rate": {"type": "number"},
                "step_errors": {
                  "type": "object",
                  "additionalProperties": {"type": "array", "items": {"type": "object"}}
                }
              }
            }
          },
          "sessions": {"type": "array"}
        }
      }
    },
    "attempts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["attempt_id", "user_id", "skill_id"],
        "properties": {
          "attempt_id": {"type": "string"},
          "user_id": {"type": "string"},
          "skill_id": {"type": "string"},
          "step_inputs": {"type": "array"},
          "step_errors": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "step_number": {"type": "integer"},
                "error_type": {"type": "string"}
              }
            }
          },
          "success": {"type": ["boolean", "null"]}
        }
      }
    }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

func documentValidator() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(documentSchema), &def); err != nil {
			compiledSchemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(documentSchemaURL, def); err != nil {
			compiledSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(documentSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// checkShape raw 不是 JSON 或结构不符合文档格式时返回 ErrCorruptDocument
func checkShape(raw []byte) error {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrCorruptDocument, err)
	}

	schema, err := documentValidator()
	if err != nil {
		return err
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return nil
}
