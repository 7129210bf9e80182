package fetcher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulwagh/policymig/policy"
)

func TestInstanceJSONSerialization(t *testing.T) {
	instance := Instance{
		InstanceID:          "i-0abc",
		AccountID:           "123456789012",
		Region:              "us-west-2",
		Target:              policy.TargetAWS,
		NetworkInterfaceIDs: []string{"eni-1"},
		PrivateIPs:          []string{"10.1.2.0/24"},
		Tags:                []policy.Tag{{Key: "app", Value: "web"}},
		DiscoveredAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(instance)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"privateIps":["10.1.2.0/24"]`)
	assert.NotContains(t, string(data), "publicIps")

	var decoded Instance
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, instance, decoded)
}

func TestInstanceHasAnyTag(t *testing.T) {
	instance := Instance{Tags: []policy.Tag{{Key: "app", Value: "web"}, {Key: "env", Value: "prod"}}}

	tests := []struct {
		name     string
		selector []policy.Tag
		expected bool
	}{
		{"exact match", []policy.Tag{{Key: "app", Value: "web"}}, true},
		{"one of several", []policy.Tag{{Key: "app", Value: "db"}, {Key: "env", Value: "prod"}}, true},
		{"key only is not enough", []policy.Tag{{Key: "app", Value: "db"}}, false},
		{"value only is not enough", []policy.Tag{{Key: "role", Value: "web"}}, false},
		{"empty selector", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, instance.HasAnyTag(tt.selector))
		})
	}
}

func TestPrivateRange(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
		ok       bool
	}{
		{"10.1.2.3", "10.1.2.0/24", true},
		{"172.31.255.254", "172.31.255.0/24", true},
		{"", "", false},
		{"not-an-ip", "", false},
		{"fe80::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, ok := privateRange(tt.addr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPublicRange(t *testing.T) {
	got, ok := publicRange("34.5.6.7")
	assert.True(t, ok)
	assert.Equal(t, "34.5.6.7/32", got)

	_, ok = publicRange("")
	assert.False(t, ok)
}

func TestInstanceTitle(t *testing.T) {
	instance := Instance{
		InstanceID: "42",
		Region:     "us-central1-a",
		Target:     policy.TargetGCP,
		Tags:       []policy.Tag{{Key: "app", Value: "web"}, {Key: "env", Value: "dev"}},
	}
	assert.Equal(t, "gcp | us-central1-a | 42 | app=web,env=dev", instance.Title())
}
