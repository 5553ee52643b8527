package lessonplanner

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// decodeObject parses a backend payload into out after checking that every
// required top-level field is present and not null.
func decodeObject(op string, data []byte, out interface{}, required ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, schemaViolation(op, "payload is not a JSON object: %v", err)
	}
	if err := requireFields(op, "", fields, required...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, schemaViolation(op, "payload does not match schema: %v", err)
	}
	return fields, nil
}

// DecodeStructured decodes a payload from GenerateStructured into out, rejecting
// it with ErrSchemaViolation when a required top-level field is missing or null.
func DecodeStructured(op string, data []byte, out interface{}, required ...string) error {
	_, err := decodeObject(op, data, out, required...)
	return err
}

// requireItemFields checks required keys on every object of an array field
func requireItemFields(op, field string, raw json.RawMessage, required ...string) error {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return schemaViolation(op, "field %q is not an array of objects: %v", field, err)
	}
	for i, item := range items {
		if err := requireFields(op, field+"["+strconv.Itoa(i)+"].", item, required...); err != nil {
			return err
		}
	}
	return nil
}

func requireFields(op, prefix string, fields map[string]json.RawMessage, required ...string) error {
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return schemaViolation(op, "missing required field %q", prefix+name)
		}
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func stringProp(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func stringListProp(desc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
		Description: desc,
	}
}
