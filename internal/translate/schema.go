package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema is the JSON object LLM providers must return.
var resultSchema = buildResultSchema()

func buildResultSchema() map[string]any {
	props := map[string]any{
		"translation":              map[string]any{"type": "string"},
		"detected_source_language": map[string]any{"type": "string", "maxLength": 35},
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"translation"},
		"properties":           props,
	}
}

type llmResult struct {
	Translation    string `json:"translation"`
	DetectedSource string `json:"detected_source_language,omitempty"`
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// parseLLMResult validates raw model output and decodes it.
func parseLLMResult(raw []byte) (llmResult, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = compileSchema(resultSchema)
	})
	if compileErr != nil {
		return llmResult{}, compileErr
	}
	raw = stripCodeFence(raw)
	if err := validateWith(compiledSchema, raw); err != nil {
		return llmResult{}, err
	}
	var out llmResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return llmResult{}, fmt.Errorf("unmarshal translation: %w", err)
	}
	return out, nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = bytes.TrimPrefix(s, []byte("```"))
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	return bytes.TrimSpace(s)
}
