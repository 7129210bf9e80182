package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPort(t *testing.T) {
	tests := []struct {
		port  string
		valid bool
	}{
		{"0", true},
		{"22", true},
		{"65535", true},
		{"100-200", true},
		{"200-200", true},
		{"0-65535", true},
		{"70000", false},
		{"65536", false},
		{"-1", false},
		{"5600-5500", false},
		{"1-2-3", false},
		{"", false},
		{"http", false},
		{"80-", false},
	}

	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidPort(tt.port))
		})
	}
}

func TestSplitPort(t *testing.T) {
	from, to, err := SplitPort("8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, from)
	assert.Equal(t, 8080, to)

	from, to, err = SplitPort("5500-5600")
	require.NoError(t, err)
	assert.Equal(t, 5500, from)
	assert.Equal(t, 5600, to)
}

func TestNewRule(t *testing.T) {
	tests := []struct {
		name  string
		spec  RuleSpec
		field string
	}{
		{name: "valid tcp", spec: RuleSpec{Ports: []string{"80", "443"}, Action: Allow, Protocol: TCP}},
		{name: "valid deny icmp", spec: RuleSpec{Ports: []string{"0"}, Action: Deny, Protocol: ICMP}},
		{name: "no ports", spec: RuleSpec{Action: Allow, Protocol: UDP}},
		{name: "port too large", spec: RuleSpec{Ports: []string{"70000"}, Action: Allow, Protocol: TCP}, field: "ports[0]"},
		{name: "inverted range", spec: RuleSpec{Ports: []string{"22", "5600-5500"}, Action: Allow, Protocol: TCP}, field: "ports[1]"},
		{name: "bad action", spec: RuleSpec{Ports: []string{"22"}, Action: "drop", Protocol: TCP}, field: "action"},
		{name: "missing action", spec: RuleSpec{Ports: []string{"22"}, Protocol: TCP}, field: "action"},
		{name: "bad protocol", spec: RuleSpec{Ports: []string{"22"}, Action: Allow, Protocol: "gre"}, field: "protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRule(tt.spec)
			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.spec.Action, r.Action())
				assert.Equal(t, tt.spec.Protocol, r.Protocol())
				return
			}
			require.ErrorIs(t, err, ErrInvalidRule)
			verr, ok := err.(*ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseTag(t *testing.T) {
	tag, ok := ParseTag("app=web=1")
	require.True(t, ok)
	assert.Equal(t, Tag{Key: "app", Value: "web=1"}, tag)
	assert.Equal(t, "app=web=1", tag.String())

	_, ok = ParseTag("novalue")
	assert.False(t, ok)
	_, ok = ParseTag("=web")
	assert.False(t, ok)
}
