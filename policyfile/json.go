// policyfile/json.go
package policyfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsval "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "policymig.schema.json"

// compiledSchema is built once from the generated schema.
var compiledSchema = sync.OnceValues(func() (*jsval.Schema, error) {
	raw, err := Schema()
	if err != nil {
		return nil, err
	}
	compiler := jsval.NewCompiler()
	if err := compiler.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile policy schema: %w", err)
	}
	return sch, nil
})

// decodeJSON checks data against the schema before decoding so that
// structural problems are reported with their JSON path.
func decodeJSON(data []byte) ([]Document, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(FormatJSON, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(raw); err != nil {
		return nil, malformed(FormatJSON, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		return nil, malformed(FormatJSON, err)
	}
	return docs, nil
}

func encodeJSON(docs []Document) ([]byte, error) {
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode policies as json: %w", err)
	}
	return append(out, '\n'), nil
}
