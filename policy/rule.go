// policy/rule.go
package policy

// RuleSpec holds the raw fields of a rule before validation.
type RuleSpec struct {
	Ports    []string `json:"ports"`
	Action   Action   `json:"action"`
	Protocol Protocol `json:"protocol"`
}

// Rule is one validated port/protocol/action directive.
type Rule struct {
	ports    []string
	action   Action
	protocol Protocol
}

// NewRule validates spec independently of any provider. Provider specific
// constraints are checked when the rule is attached to a Policy.
func NewRule(spec RuleSpec) (Rule, error) {
	err := validateRule(ruleFields{
		Ports:    spec.Ports,
		Action:   string(spec.Action),
		Protocol: string(spec.Protocol),
	})
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		ports:    append([]string{}, spec.Ports...),
		action:   spec.Action,
		protocol: spec.Protocol,
	}, nil
}

// Ports returns a copy of the port tokens in declaration order.
func (r Rule) Ports() []string { return append([]string{}, r.ports...) }

func (r Rule) Action() Action { return r.action }

func (r Rule) Protocol() Protocol { return r.protocol }

// Spec returns the raw fields of the rule.
func (r Rule) Spec() RuleSpec {
	return RuleSpec{Ports: r.Ports(), Action: r.action, Protocol: r.protocol}
}

func (r Rule) onlyPortZero() bool {
	return len(r.ports) == 1 && r.ports[0] == "0"
}
