// policyfile/format.go
package policyfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a policy file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".pcl", ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported policy file extension %q (want .json, .yaml, .yml, .pcl or .hcl)", filepath.Ext(path))
	}
}

// ParseFormat accepts a format name as given on the command line.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML, FormatHCL:
		return f, nil
	case "yml", "pcl":
		return FormatFromPath("x." + string(f))
	default:
		return "", fmt.Errorf("unknown policy file format %q", name)
	}
}
