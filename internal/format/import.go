package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/xeipuuv/gojsonschema"

	dserrors "github.com/systmms/chamber/internal/errors"
)

// importSchema accepts a flat object of scalar values.
const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": ["string", "number", "boolean"]
  }
}`

var importSchemaLoader = gojsonschema.NewStringLoader(importSchema)

// Import reads a JSON object of key/value pairs. Comments and trailing commas
// are tolerated. Numbers and booleans are kept as their JSON text. The result
// is sorted by key.
func Import(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import document: %w", err)
	}

	data := jsonc.ToJSON(raw)
	if !json.Valid(data) {
		return nil, dserrors.UserError{
			Message:    "import document is not valid JSON",
			Suggestion: "Only JSON objects can be imported; export with --format json",
		}
	}

	result, err := gojsonschema.Validate(importSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return nil, dserrors.UserError{
			Message: "import document must be an object of string, number or boolean values",
			Details: strings.Join(messages, "; "),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode import document: %w", err)
	}

	values := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			values[k] = val
		case json.Number:
			values[k] = val.String()
		case bool:
			values[k] = fmt.Sprint(val)
		}
	}
	return FromMap(values), nil
}
