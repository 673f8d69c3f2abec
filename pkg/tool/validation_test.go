package tool

import "testing"

func TestJSONSchemaValidator(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{"query":{"type":"string"},"max_results":{"type":"integer"}},"required":["query"]}`)
	if err := JSONSchemaValidator(schema, map[string]any{"query": "cats", "max_results": 3}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if err := JSONSchemaValidator(schema, map[string]any{"max_results": 3}); err == nil {
		t.Fatal("missing required field accepted")
	}
	if err := JSONSchemaValidator(schema, map[string]any{"query": "cats", "max_results": 1.5}); err == nil {
		t.Fatal("non-integer accepted")
	}
	if err := JSONSchemaValidator(nil, "anything"); err != nil {
		t.Fatalf("empty schema should accept: %v", err)
	}
}

func TestCompileJSONSchema(t *testing.T) {
	if err := CompileJSONSchema([]byte(`{"type":"object"}`)); err != nil {
		t.Fatal(err)
	}
	if err := CompileJSONSchema([]byte(`{"type":`)); err == nil {
		t.Fatal("expected parse error")
	}
	if err := CompileJSONSchema([]byte(`{"type":"nonsense"}`)); err == nil {
		t.Fatal("expected compile error")
	}
}
