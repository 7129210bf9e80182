package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// gcpSpec returns Scenario A: a minimal valid GCP ingress policy.
func gcpSpec() Spec {
	return Spec{
		Name:      "ssh",
		Target:    TargetGCP,
		Direction: Ingress,
		Network:   strPtr("default"),
		SourceIPs: []string{"10.0.0.0/24"},
		Rules:     []RuleSpec{{Ports: []string{"22"}, Action: Allow, Protocol: TCP}},
	}
}

func awsSpec() Spec {
	return Spec{
		Name:       "web",
		Target:     TargetAWS,
		Direction:  Ingress,
		Region:     strPtr("us-west-2"),
		SourceTags: []Tag{{Key: "app", Value: "web"}},
		Rules:      []RuleSpec{{Ports: []string{"8080", "5500-5600"}, Action: Allow, Protocol: TCP}},
	}
}

func TestNew_ValidGCPPolicy(t *testing.T) {
	p, err := New(gcpSpec())
	require.NoError(t, err)

	assert.Equal(t, "ssh", p.Name())
	assert.Equal(t, TargetGCP, p.Target())
	assert.Equal(t, Ingress, p.Direction())
	network, ok := p.Network()
	assert.True(t, ok)
	assert.Equal(t, "default", network)
	_, ok = p.Region()
	assert.False(t, ok)
	assert.Equal(t, SelectorIPs, p.SourceSelector().Kind())
	assert.Equal(t, []string{"10.0.0.0/24"}, p.SourceSelector().IPs())
	assert.Equal(t, SelectorNone, p.TargetSelector().Kind())
	require.Len(t, p.Rules(), 1)
	assert.Equal(t, []string{"22"}, p.Rules()[0].Ports())
}

func TestNew_NormalizesDirection(t *testing.T) {
	spec := gcpSpec()
	spec.Direction = "ingress"

	p, err := New(spec)
	require.NoError(t, err)
	assert.Equal(t, Ingress, p.Direction())
}

func TestNew_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		kind   error
		field  string
	}{
		{
			name:   "unknown direction",
			mutate: func(s *Spec) { s.Direction = "SIDEWAYS" },
			kind:   ErrInvalidDirection,
			field:  "direction",
		},
		{
			name:   "ingress without source",
			mutate: func(s *Spec) { s.SourceIPs = nil },
			kind:   ErrMissingOrConflictingSelector,
		},
		{
			name: "ingress with both source variants",
			mutate: func(s *Spec) {
				s.SourceTags = []Tag{{Key: "app", Value: "web"}}
			},
			kind: ErrMissingOrConflictingSelector,
		},
		{
			name:   "ingress with target selector",
			mutate: func(s *Spec) { s.TargetIPs = []string{"0.0.0.0/0"} },
			kind:   ErrMissingOrConflictingSelector,
		},
		{
			name: "egress with source selector",
			mutate: func(s *Spec) {
				s.Direction = Egress
				s.TargetIPs = []string{"0.0.0.0/0"}
			},
			kind: ErrMissingOrConflictingSelector,
		},
		{
			name:   "unknown target",
			mutate: func(s *Spec) { s.Target = "azure" },
			kind:   ErrInvalidTarget,
			field:  "target",
		},
		{
			name:   "gcp without network",
			mutate: func(s *Spec) { s.Network = nil },
			kind:   ErrMissingNetwork,
			field:  "network",
		},
		{
			name: "gcp with all protocol",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"0"}, Action: Allow, Protocol: All}}
			},
			kind:  ErrUnsupportedProtocol,
			field: "rules[0].protocol",
		},
		{
			name:   "bad network name",
			mutate: func(s *Spec) { s.Network = strPtr("My_Net") },
			kind:   ErrInvalidNetworkName,
			field:  "network",
		},
		{
			name:   "region on gcp policy still checked",
			mutate: func(s *Spec) { s.Region = strPtr("mars-1") },
			kind:   ErrInvalidRegion,
			field:  "region",
		},
		{
			name:   "prefix out of range",
			mutate: func(s *Spec) { s.SourceIPs = []string{"10.0.0.0/24", "192.22.6.255/33"} },
			kind:   ErrInvalidCidr,
			field:  "sourceIps[1]",
		},
		{
			name:   "missing prefix",
			mutate: func(s *Spec) { s.SourceIPs = []string{"192.22.6.25"} },
			kind:   ErrInvalidCidr,
			field:  "sourceIps[0]",
		},
		{
			name: "bad rule port",
			mutate: func(s *Spec) {
				s.Rules = append(s.Rules, RuleSpec{Ports: []string{"80", "70000"}, Action: Allow, Protocol: TCP})
			},
			kind:  ErrInvalidRule,
			field: "rules[1].ports[1]",
		},
		{
			name:   "empty name",
			mutate: func(s *Spec) { s.Name = "" },
			kind:   ErrMissingName,
			field:  "name",
		},
		{
			name: "tag key holding an equals sign",
			mutate: func(s *Spec) {
				s.SourceIPs = nil
				s.SourceTags = []Tag{{Key: "a=b", Value: "c"}}
			},
			kind:  ErrInvalidTag,
			field: "sourceTags[0]",
		},
		{
			name: "empty tag key",
			mutate: func(s *Spec) {
				s.SourceIPs = nil
				s.SourceTags = []Tag{{Key: "app", Value: "web"}, {Key: "", Value: "c"}}
			},
			kind:  ErrInvalidTag,
			field: "sourceTags[1]",
		},
		{
			name: "egress tag value with spaces",
			mutate: func(s *Spec) {
				s.Direction = Egress
				s.SourceIPs = nil
				s.TargetTags = []Tag{{Key: "app", Value: "web server"}}
			},
			kind:  ErrInvalidTag,
			field: "targetTags[0]",
		},
		{
			name: "bad rule action",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"80"}, Action: "invalid", Protocol: TCP}}
			},
			kind:  ErrInvalidRule,
			field: "rules[0].action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := gcpSpec()
			tt.mutate(&spec)

			p, err := New(spec)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.kind)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestNew_AWSFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		kind   error
	}{
		{
			name:   "missing region",
			mutate: func(s *Spec) { s.Region = nil },
			kind:   ErrMissingRegion,
		},
		{
			name:   "unknown region",
			mutate: func(s *Spec) { s.Region = strPtr("us-west-9") },
			kind:   ErrInvalidRegion,
		},
		{
			// Scenario C
			name: "deny rule",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"8080"}, Action: Deny, Protocol: TCP}}
			},
			kind: ErrUnsupportedAction,
		},
		{
			name: "sctp rule",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"9000"}, Action: Allow, Protocol: SCTP}}
			},
			kind: ErrUnsupportedProtocol,
		},
		{
			name: "all protocol with a real port",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"80"}, Action: Allow, Protocol: All}}
			},
			kind: ErrInvalidPortsForAllProtocol,
		},
		{
			name: "all protocol with extra ports",
			mutate: func(s *Spec) {
				s.Rules = []RuleSpec{{Ports: []string{"0", "22"}, Action: Allow, Protocol: All}}
			},
			kind: ErrInvalidPortsForAllProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := awsSpec()
			tt.mutate(&spec)

			_, err := New(spec)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestNew_AWSAllProtocolPortZero(t *testing.T) {
	spec := awsSpec()
	spec.Rules = []RuleSpec{{Ports: []string{"0"}, Action: Allow, Protocol: All}}

	_, err := New(spec)
	assert.NoError(t, err)
}

func TestNewRule_AllProtocolOnlyCheckedUnderAWS(t *testing.T) {
	rs := RuleSpec{Ports: []string{"80"}, Action: Allow, Protocol: All}

	_, err := NewRule(rs)
	require.NoError(t, err)

	spec := awsSpec()
	spec.Rules = []RuleSpec{rs}
	_, err = New(spec)
	assert.ErrorIs(t, err, ErrInvalidPortsForAllProtocol)
}

func TestNew_EgressTags(t *testing.T) {
	spec := awsSpec()
	spec.Direction = Egress
	spec.SourceTags = nil
	spec.TargetTags = []Tag{{Key: "app", Value: "db"}, {Key: "app", Value: "cache"}}

	p, err := New(spec)
	require.NoError(t, err)
	assert.Equal(t, SelectorNone, p.SourceSelector().Kind())
	assert.Equal(t, SelectorTags, p.TargetSelector().Kind())
	assert.Len(t, p.TargetSelector().Tags(), 2)
}

func TestPolicy_SpecRoundTrip(t *testing.T) {
	original := awsSpec()
	p, err := New(original)
	require.NoError(t, err)

	again, err := New(p.Spec())
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestPolicy_IsImmutable(t *testing.T) {
	spec := gcpSpec()
	p, err := New(spec)
	require.NoError(t, err)

	spec.SourceIPs[0] = "0.0.0.0/0"
	*spec.Network = "other"
	p.Rules()[0].Ports()[0] = "23"

	assert.Equal(t, []string{"10.0.0.0/24"}, p.SourceSelector().IPs())
	network, _ := p.Network()
	assert.Equal(t, "default", network)
	assert.Equal(t, []string{"22"}, p.Rules()[0].Ports())
}

func TestValidationError_Message(t *testing.T) {
	spec := awsSpec()
	spec.Rules = []RuleSpec{{Ports: []string{"8080"}, Action: Deny, Protocol: TCP}}

	_, err := New(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action")
	assert.Contains(t, err.Error(), "rules[0].action")
	assert.Contains(t, err.Error(), `"deny"`)
}
