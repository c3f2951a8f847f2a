package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type responseShape string

const (
	shapeSubmit        responseShape = "submit"
	shapeAuthenticated responseShape = "authenticated"
	shapeVersion       responseShape = "version"
	shapeObject        responseShape = "object"
)

var responseSchemas = map[responseShape]string{
	shapeSubmit: `{
  "type": "object",
  "required": ["result"],
  "properties": {
    "result": {"type": "boolean"},
    "url": {"type": ["string", "null"]},
    "message": {"type": ["string", "null"]}
  },
  "if": {"properties": {"result": {"const": true}}},
  "then": {"required": ["url"], "properties": {"url": {"type": "string", "minLength": 1}}}
}`,
	shapeAuthenticated: `{
  "type": "object",
  "required": ["result"],
  "properties": {
    "result": {"type": "boolean"},
    "message": {"type": ["string", "null"]}
  }
}`,
	shapeVersion: `{
  "type": "object",
  "properties": {
    "assemble": {"type": ["string", "null"]},
    "ballet": {"type": ["string", "null"]},
    "project": {"type": ["string", "null"]}
  }
}`,
	shapeObject: `{"type": "object"}`,
}

var (
	compileOnce     sync.Once
	compiledSchemas map[responseShape]*jsonschema.Schema
	compileErr      error
)

func compileSchemas() (map[responseShape]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		out := make(map[responseShape]*jsonschema.Schema, len(responseSchemas))
		for shape, raw := range responseSchemas {
			c := jsonschema.NewCompiler()
			c.Draft = jsonschema.Draft2020
			schemaURL := fmt.Sprintf("https://ballet.schemas.local/assemble/%s.schema.json", shape)
			if err := c.AddResource(schemaURL, strings.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("response schema %s load failed: %w", shape, err)
				return
			}
			compiled, err := c.Compile(schemaURL)
			if err != nil {
				compileErr = fmt.Errorf("response schema %s compile failed: %w", shape, err)
				return
			}
			out[shape] = compiled
		}
		compiledSchemas = out
	})
	return compiledSchemas, compileErr
}

// validateShape checks a decoded JSON value against the declared response shape.
func validateShape(shape responseShape, value any) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	compiled, ok := schemas[shape]
	if !ok {
		return fmt.Errorf("unknown response shape %q", shape)
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("%s response does not match schema: %w", shape, err)
	}
	return nil
}
