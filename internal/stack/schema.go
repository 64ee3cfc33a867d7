package stack

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// stateDocumentSchema describes the shape of a stack state document. Only
// structure is checked here; versions and identifiers are validated after
// unmarshalling so their errors carry the offending values.
const stateDocumentSchema = `{
  "type": "object",
  "required": ["version", "head", "applied", "unapplied", "hidden", "patches"],
  "properties": {
    "version": {"type": "integer"},
    "prev": {"type": ["string", "null"]},
    "head": {"type": "string"},
    "applied": {"type": "array", "items": {"type": "string"}},
    "unapplied": {"type": "array", "items": {"type": "string"}},
    "hidden": {"type": "array", "items": {"type": "string"}},
    "patches": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["oid"],
        "properties": {"oid": {"type": "string"}}
      }
    }
  }
}`

var loadStateSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(stateDocumentSchema))
})

// checkStructure validates data against stateDocumentSchema.
func checkStructure(data []byte) error {
	schema, err := loadStateSchema()
	if err != nil {
		return &StructureError{Err: err}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &StructureError{Err: err}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &StructureError{Issues: issues}
}
