package adminflow

import (
	"sort"
	"strings"

	"earnaura/internal/pkg/validator"
)

// ValidationError lists the form fields that failed, keyed by json name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, describe(k, e.Fields[k]))
	}
	return strings.Join(msgs, "; ")
}

func describe(field, tag string) string {
	name := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required", "required_if":
		return name + " is required"
	case "min":
		if field == "motivation" {
			return "motivation must be at least 50 characters"
		}
		return name + " is too short"
	case "max":
		return name + " is too long"
	case "email":
		return name + " must be a valid email address"
	case "oneof":
		return name + " has an unsupported value"
	}
	return name + " is invalid"
}

func validate(v any) error {
	if fields := validator.Validate(v); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}
