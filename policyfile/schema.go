// policyfile/schema.go
package policyfile

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of a policy file, an array of Document.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		Anonymous: true, // no $id derived from the Go package path
	}
	schema := reflector.Reflect(&[]Document{})
	schema.Title = "policymig policy file"

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
