package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"dealflow/internal/types"
)

// validateArgs checks arguments against a tool's input schema: every
// required field must be present and every known field must match its
// declared primitive type. Unknown fields are tolerated; the model
// occasionally invents extras and the handlers just ignore them.
func validateArgs(schema types.ParameterSchema, args map[string]any) error {
	for _, required := range schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}

	for key, value := range args {
		spec, ok := schema.Properties[key]
		if !ok {
			continue
		}
		if err := checkType(value, spec.Type); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidArgType, key, err)
		}
	}
	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "", "any":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
