package tools

import "bytes"

// newJSONReader wraps a JSON Schema document for jsonschema.Compiler.AddResource.
func newJSONReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
