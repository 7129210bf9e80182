// policyfile/document.go

// Package policyfile reads and writes policy lists in the JSON, YAML and
// HCL file formats. Every parsed entry is validated through policy.New, so a
// successful parse always yields fully valid policies.
package policyfile

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rahulwagh/policymig/policy"
)

// Document is the on-disk shape of one policy. Optional selector lists are
// pointers so that an absent list and an empty one survive a round trip.
type Document struct {
	Name        string         `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Target      string         `json:"target" yaml:"target"`
	Direction   string         `json:"direction,omitempty" yaml:"direction,omitempty"`
	Network     *string        `json:"network,omitempty" yaml:"network,omitempty"`
	Region      *string        `json:"region,omitempty" yaml:"region,omitempty"`
	SourceIPs   *[]string      `json:"sourceIps,omitempty" yaml:"sourceIps,omitempty"`
	SourceTags  *TagList       `json:"sourceTags,omitempty" yaml:"sourceTags,omitempty"`
	TargetIPs   *[]string      `json:"targetIps,omitempty" yaml:"targetIps,omitempty"`
	TargetTags  *TagList       `json:"targetTags,omitempty" yaml:"targetTags,omitempty"`
	Rules       []RuleDocument `json:"rules" yaml:"rules"`
}

// RuleDocument is the on-disk shape of one rule.
type RuleDocument struct {
	Ports    []string `json:"ports" yaml:"ports"`
	Action   string   `json:"action,omitempty" yaml:"action,omitempty"`
	Protocol string   `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// TagList is serialized as a list of single-key objects, [{"app": "web"}],
// so repeated keys are kept.
type TagList []policy.Tag

func (l TagList) entries() []map[string]string {
	out := make([]map[string]string, 0, len(l))
	for _, t := range l {
		out = append(out, map[string]string{t.Key: t.Value})
	}
	return out
}

func tagsFromEntries(entries []map[string]string) (TagList, error) {
	out := make(TagList, 0, len(entries))
	for i, e := range entries {
		if len(e) != 1 {
			return nil, fmt.Errorf("tag entry %d must have exactly one key, got %d", i, len(e))
		}
		for k, v := range e {
			out = append(out, policy.Tag{Key: k, Value: v})
		}
	}
	return out, nil
}

func (l TagList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.entries())
}

func (l *TagList) UnmarshalJSON(data []byte) error {
	var entries []map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	tags, err := tagsFromEntries(entries)
	if err != nil {
		return err
	}
	*l = tags
	return nil
}

func (l TagList) MarshalYAML() (interface{}, error) {
	return l.entries(), nil
}

func (l *TagList) UnmarshalYAML(value *yaml.Node) error {
	var entries []map[string]string
	if err := value.Decode(&entries); err != nil {
		return err
	}
	tags, err := tagsFromEntries(entries)
	if err != nil {
		return err
	}
	*l = tags
	return nil
}

// JSONSchema describes the single-key object list for the schema generator.
func (TagList) JSONSchema() *jsonschema.Schema {
	one := uint64(1)
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type:                 "object",
			MinProperties:        &one,
			MaxProperties:        &one,
			AdditionalProperties: &jsonschema.Schema{Type: "string"},
		},
	}
}

// File-level defaults for fields a policy author may leave out.
const (
	defaultDirection = policy.Ingress
	defaultAction    = policy.Allow
	defaultProtocol  = policy.TCP
)

// spec converts the document to a policy.Spec, filling defaults.
func (d Document) spec() policy.Spec {
	spec := policy.Spec{
		Name:        d.Name,
		Description: d.Description,
		Target:      policy.Target(d.Target),
		Direction:   policy.Direction(d.Direction),
		Network:     d.Network,
		Region:      d.Region,
		Rules:       make([]policy.RuleSpec, 0, len(d.Rules)),
	}
	if spec.Direction == "" {
		spec.Direction = defaultDirection
	}
	if d.SourceIPs != nil {
		spec.SourceIPs = *d.SourceIPs
	}
	if d.SourceTags != nil {
		spec.SourceTags = []policy.Tag(*d.SourceTags)
	}
	if d.TargetIPs != nil {
		spec.TargetIPs = *d.TargetIPs
	}
	if d.TargetTags != nil {
		spec.TargetTags = []policy.Tag(*d.TargetTags)
	}
	for _, r := range d.Rules {
		rs := policy.RuleSpec{
			Ports:    r.Ports,
			Action:   policy.Action(r.Action),
			Protocol: policy.Protocol(r.Protocol),
		}
		if rs.Action == "" {
			rs.Action = defaultAction
		}
		if rs.Protocol == "" {
			rs.Protocol = defaultProtocol
		}
		spec.Rules = append(spec.Rules, rs)
	}
	return spec
}

// documentOf renders a validated policy back into its on-disk shape.
func documentOf(p *policy.Policy) Document {
	spec := p.Spec()
	d := Document{
		Name:        spec.Name,
		Description: spec.Description,
		Target:      string(spec.Target),
		Direction:   string(spec.Direction),
		Network:     spec.Network,
		Region:      spec.Region,
		Rules:       make([]RuleDocument, 0, len(spec.Rules)),
	}
	if spec.SourceIPs != nil {
		d.SourceIPs = &spec.SourceIPs
	}
	if spec.SourceTags != nil {
		tags := TagList(spec.SourceTags)
		d.SourceTags = &tags
	}
	if spec.TargetIPs != nil {
		d.TargetIPs = &spec.TargetIPs
	}
	if spec.TargetTags != nil {
		tags := TagList(spec.TargetTags)
		d.TargetTags = &tags
	}
	for _, r := range spec.Rules {
		ports := r.Ports
		if ports == nil {
			ports = []string{}
		}
		d.Rules = append(d.Rules, RuleDocument{
			Ports:    ports,
			Action:   string(r.Action),
			Protocol: string(r.Protocol),
		})
	}
	return d
}

// build validates each document in order. The first failure aborts the
// whole list.
func build(docs []Document) ([]*policy.Policy, error) {
	policies := make([]*policy.Policy, 0, len(docs))
	for i, d := range docs {
		p, err := policy.New(d.spec())
		if err != nil {
			return nil, fmt.Errorf("policy %d (%q): %w", i, d.Name, err)
		}
		policies = append(policies, p)
	}
	return policies, nil
}
