// policyfile/yaml.go
package policyfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func decodeYAML(data []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, malformed(FormatYAML, err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("policies must be a single yaml document")
		}
		return nil, malformed(FormatYAML, err)
	}
	for i, d := range docs {
		if d.Name == "" {
			return nil, malformed(FormatYAML, fmt.Errorf("policy %d: name is required", i))
		}
		if d.Target == "" {
			return nil, malformed(FormatYAML, fmt.Errorf("policy %d: target is required", i))
		}
	}
	return docs, nil
}

func encodeYAML(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return nil, fmt.Errorf("failed to encode policies as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode policies as yaml: %w", err)
	}
	return buf.Bytes(), nil
}
