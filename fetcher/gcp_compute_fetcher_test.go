package fetcher

import (
	"testing"
	"time"

	"cloud.google.com/go/asset/apiv1/assetpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rahulwagh/policymig/policy"
)

func strPtr(s string) *string { return &s }

func TestExtractResourceName(t *testing.T) {
	tests := []struct {
		name         string
		resourcePath string
		expected     string
	}{
		{
			name:         "Zone URL",
			resourcePath: "https://www.googleapis.com/compute/v1/projects/my-project/zones/us-central1-a",
			expected:     "us-central1-a",
		},
		{
			name:         "Asset name",
			resourcePath: "//compute.googleapis.com/projects/p/zones/us-east1-b/instances/vm-1",
			expected:     "vm-1",
		},
		{
			name:         "Single name without path",
			resourcePath: "my-resource",
			expected:     "my-resource",
		},
		{
			name:         "Empty string",
			resourcePath: "",
			expected:     "N/A",
		},
		{
			name:         "Path with trailing slash",
			resourcePath: "projects/my-project/zones/my-zone/",
			expected:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractResourceName(tt.resourcePath)
			if result != tt.expected {
				t.Errorf("extractResourceName(%q) = %q, expected %q", tt.resourcePath, result, tt.expected)
			}
		})
	}
}

func TestInstanceFromCompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inst := &compute.Instance{
		Id:   1234567890,
		Zone: "https://www.googleapis.com/compute/v1/projects/demo/zones/europe-west1-b",
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Name:          "nic0",
				NetworkIP:     "10.128.0.7",
				AccessConfigs: []*compute.AccessConfig{{NatIP: "34.1.2.3"}},
			},
			{Name: "nic1", NetworkIP: "10.128.0.9"},
		},
		Labels: map[string]string{"env": "prod", "app": "web"},
		Metadata: &compute.Metadata{Items: []*compute.MetadataItems{
			{Key: "role", Value: strPtr("db")},
			{Key: "startup-script", Value: strPtr("#!/bin/bash\necho hi")},
			{Key: "empty", Value: nil},
		}},
	}

	got := instanceFromCompute("demo", inst, now)

	assert.Equal(t, "1234567890", got.InstanceID)
	assert.Equal(t, "demo", got.AccountID)
	assert.Equal(t, "europe-west1-b", got.Region)
	assert.Equal(t, policy.TargetGCP, got.Target)
	assert.Equal(t, []string{"nic0", "nic1"}, got.NetworkInterfaceIDs)
	assert.Equal(t, []string{"10.128.0.0/24"}, got.PrivateIPs)
	assert.Equal(t, []string{"34.1.2.3/32"}, got.PublicIPs)
	assert.Equal(t, []policy.Tag{
		{Key: "app", Value: "web"},
		{Key: "env", Value: "prod"},
		{Key: "role", Value: "db"},
	}, got.Tags)
	assert.Equal(t, now, got.DiscoveredAt)
}

func TestInstanceFromAsset(t *testing.T) {
	attrs, err := structpb.NewStruct(map[string]interface{}{
		"id":          "987",
		"internalIPs": []interface{}{"10.0.5.9", "10.0.6.1"},
		"externalIPs": []interface{}{"35.1.1.1"},
	})
	require.NoError(t, err)

	f := &GCPFetcher{Now: func() time.Time { return time.Unix(0, 0).UTC() }}
	got := f.instanceFromAsset(&assetpb.ResourceSearchResult{
		Name:                 "//compute.googleapis.com/projects/shop-prod/zones/us-east1-b/instances/vm-1",
		Location:             "us-east1-b",
		Labels:               map[string]string{"app": "shop"},
		AdditionalAttributes: attrs,
	})

	assert.Equal(t, "987", got.InstanceID)
	assert.Equal(t, "shop-prod", got.AccountID)
	assert.Equal(t, "us-east1-b", got.Region)
	assert.Equal(t, []string{"10.0.5.0/24", "10.0.6.0/24"}, got.PrivateIPs)
	assert.Equal(t, []string{"35.1.1.1/32"}, got.PublicIPs)
	assert.Equal(t, []policy.Tag{{Key: "app", Value: "shop"}}, got.Tags)
}

func TestProjectFromResourceName(t *testing.T) {
	assert.Equal(t, "p1", projectFromResourceName("//compute.googleapis.com/projects/p1/zones/z/instances/i"))
	assert.Equal(t, "N/A", projectFromResourceName("//compute.googleapis.com/zones/z"))
}
