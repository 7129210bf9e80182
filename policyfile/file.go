// policyfile/file.go
package policyfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/policy"
)

// Parse decodes data in the given format and validates every policy.
// Either all policies are returned or none are.
func Parse(data []byte, format Format) ([]*policy.Policy, error) {
	return parseNamed(data, format, "policies."+string(format))
}

func parseNamed(data []byte, format Format, filename string) ([]*policy.Policy, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*policy.Policy{}, nil
	}

	var docs []Document
	var err error
	switch format {
	case FormatJSON:
		docs, err = decodeJSON(data)
	case FormatYAML:
		docs, err = decodeYAML(data)
	case FormatHCL:
		docs, err = decodeHCL(data, filename)
	default:
		return nil, fmt.Errorf("unknown policy file format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return build(docs)
}

// Serialize encodes policies in the given format.
func Serialize(policies []*policy.Policy, format Format) ([]byte, error) {
	docs := make([]Document, 0, len(policies))
	for _, p := range policies {
		docs = append(docs, documentOf(p))
	}

	switch format {
	case FormatJSON:
		return encodeJSON(docs)
	case FormatYAML:
		return encodeYAML(docs)
	case FormatHCL:
		return encodeHCL(docs), nil
	default:
		return nil, fmt.Errorf("unknown policy file format %q", format)
	}
}

// ReadFile loads the policies stored at path. A missing or empty file holds
// no policies.
func ReadFile(path string) ([]*policy.Policy, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("policy file %s does not exist, starting empty", path)
			return []*policy.Policy{}, nil
		}
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	policies, err := parseNamed(data, format, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return policies, nil
}

// WriteFile replaces the contents of path with policies.
func WriteFile(path string, policies []*policy.Policy) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Serialize(policies, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write policy file %s: %w", path, err)
	}
	return nil
}

// AppendToFile adds policies after the ones already stored at path.
func AppendToFile(path string, policies ...*policy.Policy) error {
	existing, err := ReadFile(path)
	if err != nil {
		return err
	}
	log.Debugf("appending %d policies to %s (%d already present)", len(policies), path, len(existing))
	return WriteFile(path, append(existing, policies...))
}
