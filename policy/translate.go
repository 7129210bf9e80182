// policy/translate.go
package policy

// Translate builds the equivalent of p for another provider. Only allow
// rules over tcp, udp or icmp survive since nothing else has a safe
// equivalent on both providers. The result is validated like any new policy.
// Empty region or network means "not given".
func Translate(p *Policy, target Target, region, network string) (*Policy, error) {
	if target != TargetAWS && target != TargetGCP {
		return nil, invalid(ErrInvalidTarget, "target", string(target), "must be aws or gcp")
	}

	spec := p.Spec()
	spec.Target = target
	spec.Region = nil
	spec.Network = nil
	switch target {
	case TargetAWS:
		if region != "" {
			spec.Region = &region
		}
	case TargetGCP:
		if network != "" {
			spec.Network = &network
		}
	}

	spec.Rules = make([]RuleSpec, 0, len(p.rules))
	for _, r := range p.rules {
		if Portable(r) {
			spec.Rules = append(spec.Rules, r.Spec())
		}
	}
	return New(spec)
}

// Portable reports whether r survives translation between providers.
func Portable(r Rule) bool {
	if r.action != Allow {
		return false
	}
	switch r.protocol {
	case TCP, UDP, ICMP:
		return true
	}
	return false
}
