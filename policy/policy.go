// policy/policy.go
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Spec is the fully populated configuration a Policy is built from.
// Nil slices and pointers mean "absent"; an empty non-nil slice is present.
type Spec struct {
	Name        string
	Description string
	Target      Target
	Direction   Direction
	Network     *string
	Region      *string
	SourceIPs   []string
	SourceTags  []Tag
	TargetIPs   []string
	TargetTags  []Tag
	Rules       []RuleSpec
}

// Policy is a validated, immutable network security intent.
type Policy struct {
	name        string
	description string
	target      Target
	direction   Direction
	network     *string
	region      *string
	source      Selector
	destination Selector
	rules       []Rule
}

// New validates spec and builds a Policy. Rules are validated first, then
// the policy level checks run in a fixed order and the first failure is
// returned as a *ValidationError.
func New(spec Spec) (*Policy, error) {
	rules := make([]Rule, 0, len(spec.Rules))
	for i, rs := range spec.Rules {
		r, err := NewRule(rs)
		if err != nil {
			return nil, prefixRuleError(err, i)
		}
		rules = append(rules, r)
	}

	direction := Direction(strings.ToUpper(string(spec.Direction)))
	if direction != Ingress && direction != Egress {
		return nil, invalid(ErrInvalidDirection, "direction", string(spec.Direction), "must be INGRESS or EGRESS")
	}

	if err := checkSelectors(direction, spec); err != nil {
		return nil, err
	}

	switch spec.Target {
	case TargetGCP:
		if spec.Network == nil {
			return nil, invalid(ErrMissingNetwork, "network", "", "network must be specified for gcp")
		}
		for i, r := range rules {
			if r.protocol == All {
				return nil, invalid(ErrUnsupportedProtocol, fmt.Sprintf("rules[%d].protocol", i), string(r.protocol), "not a valid protocol for gcp")
			}
		}
	case TargetAWS:
		if spec.Region == nil {
			return nil, invalid(ErrMissingRegion, "region", "", "region must be specified for aws")
		}
		for i, r := range rules {
			if err := checkAWSRule(r, i); err != nil {
				return nil, err
			}
		}
	default:
		return nil, invalid(ErrInvalidTarget, "target", string(spec.Target), "must be aws or gcp")
	}

	if spec.Region != nil && !validRegion(*spec.Region) {
		return nil, invalid(ErrInvalidRegion, "region", *spec.Region, "not a known aws region")
	}
	if spec.Network != nil && !validNetworkName(*spec.Network) {
		return nil, invalid(ErrInvalidNetworkName, "network", *spec.Network, "only lowercase letters, digits and hyphens")
	}
	for i, ip := range spec.SourceIPs {
		if !validCidr(ip) {
			return nil, invalid(ErrInvalidCidr, fmt.Sprintf("sourceIps[%d]", i), ip, "expected A.B.C.D/prefix")
		}
	}
	for i, ip := range spec.TargetIPs {
		if !validCidr(ip) {
			return nil, invalid(ErrInvalidCidr, fmt.Sprintf("targetIps[%d]", i), ip, "expected A.B.C.D/prefix")
		}
	}
	if err := checkTags("sourceTags", spec.SourceTags); err != nil {
		return nil, err
	}
	if err := checkTags("targetTags", spec.TargetTags); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, invalid(ErrMissingName, "name", spec.Name, "name must not be empty")
	}

	return &Policy{
		name:        spec.Name,
		description: spec.Description,
		target:      spec.Target,
		direction:   direction,
		network:     cloneString(spec.Network),
		region:      cloneString(spec.Region),
		source:      selectorFrom(spec.SourceIPs, spec.SourceTags),
		destination: selectorFrom(spec.TargetIPs, spec.TargetTags),
		rules:       rules,
	}, nil
}

func checkSelectors(direction Direction, spec Spec) error {
	var self, other string
	var populated bool
	switch direction {
	case Ingress:
		self, other = "source", "target"
		populated = (spec.SourceIPs != nil) != (spec.SourceTags != nil)
		populated = populated && spec.TargetIPs == nil && spec.TargetTags == nil
	case Egress:
		self, other = "target", "source"
		populated = (spec.TargetIPs != nil) != (spec.TargetTags != nil)
		populated = populated && spec.SourceIPs == nil && spec.SourceTags == nil
	}
	if !populated {
		reason := fmt.Sprintf("%s requires exactly one of %sIps or %sTags and no %s selector", direction, self, self, other)
		return invalid(ErrMissingOrConflictingSelector, self+"Selector", "", reason)
	}
	return nil
}

func checkTags(field string, tags []Tag) error {
	for i, t := range tags {
		if !validTag(t) {
			return invalid(ErrInvalidTag, fmt.Sprintf("%s[%d]", field, i), t.String(), "key and value may only hold letters, digits, dots and hyphens")
		}
	}
	return nil
}

// checkAWSRule enforces the per-rule AWS constraints. Security groups can
// only allow traffic and have no names for sctp, esp or ah.
func checkAWSRule(r Rule, i int) error {
	switch r.protocol {
	case SCTP, ESP, AH:
		return invalid(ErrUnsupportedProtocol, fmt.Sprintf("rules[%d].protocol", i), string(r.protocol), "not a valid protocol for aws")
	}
	if r.action != Allow {
		return invalid(ErrUnsupportedAction, fmt.Sprintf("rules[%d].action", i), string(r.action), "aws policies can only allow traffic")
	}
	if r.protocol == All && !r.onlyPortZero() {
		return invalid(ErrInvalidPortsForAllProtocol, fmt.Sprintf("rules[%d].ports", i), strings.Join(r.ports, ","), `ports must be exactly ["0"] to use the "all" protocol`)
	}
	return nil
}

func prefixRuleError(err error, i int) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	field := fmt.Sprintf("rules[%d]", i)
	if verr.Field != "" {
		field += "." + verr.Field
	}
	return invalid(verr.Kind, field, verr.Value, verr.Reason)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (p *Policy) Name() string { return p.name }

func (p *Policy) Description() string { return p.description }

func (p *Policy) Target() Target { return p.target }

// Direction is always normalized to upper case.
func (p *Policy) Direction() Direction { return p.direction }

// Network returns the GCP network and whether it is set.
func (p *Policy) Network() (string, bool) {
	if p.network == nil {
		return "", false
	}
	return *p.network, true
}

// Region returns the AWS region and whether it is set.
func (p *Policy) Region() (string, bool) {
	if p.region == nil {
		return "", false
	}
	return *p.region, true
}

// SourceSelector is populated for INGRESS policies.
func (p *Policy) SourceSelector() Selector { return p.source }

// TargetSelector is populated for EGRESS policies.
func (p *Policy) TargetSelector() Selector { return p.destination }

// Rules returns the rules in declaration order.
func (p *Policy) Rules() []Rule { return append([]Rule{}, p.rules...) }

// Spec returns a deep copy of the fields the policy was built from.
func (p *Policy) Spec() Spec {
	spec := Spec{
		Name:        p.name,
		Description: p.description,
		Target:      p.target,
		Direction:   p.direction,
		Network:     cloneString(p.network),
		Region:      cloneString(p.region),
		SourceIPs:   p.source.IPs(),
		SourceTags:  p.source.Tags(),
		TargetIPs:   p.destination.IPs(),
		TargetTags:  p.destination.Tags(),
		Rules:       make([]RuleSpec, 0, len(p.rules)),
	}
	for _, r := range p.rules {
		spec.Rules = append(spec.Rules, r.Spec())
	}
	return spec
}
