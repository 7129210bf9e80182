package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulwagh/policymig/policy"
)

// pagedEC2 serves DescribeInstances pages in order, keyed by NextToken.
type pagedEC2 struct {
	pages []*ec2.DescribeInstancesOutput
	calls int
}

func (p *pagedEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	idx := 0
	if in.NextToken != nil {
		idx = int((*in.NextToken)[0] - '0')
	}
	p.calls++
	return p.pages[idx], nil
}

func ec2Instance(id, privateIP string, tags map[string]string) types.Instance {
	inst := types.Instance{
		InstanceId:       aws.String(id),
		PrivateIpAddress: aws.String(privateIP),
		NetworkInterfaces: []types.InstanceNetworkInterface{{
			NetworkInterfaceId: aws.String("eni-" + id),
			PrivateIpAddresses: []types.InstancePrivateIpAddress{{PrivateIpAddress: aws.String(privateIP)}},
		}},
	}
	for k, v := range tags {
		inst.Tags = append(inst.Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return inst
}

func TestAWSFetcherDiscover(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	west := &pagedEC2{pages: []*ec2.DescribeInstancesOutput{
		{
			NextToken: aws.String("1"),
			Reservations: []types.Reservation{{
				OwnerId:   aws.String("111122223333"),
				Instances: []types.Instance{ec2Instance("i-1", "10.1.2.3", map[string]string{"app": "web"})},
			}},
		},
		{
			Reservations: []types.Reservation{{
				OwnerId:   aws.String("111122223333"),
				Instances: []types.Instance{ec2Instance("i-2", "10.1.9.4", nil)},
			}},
		},
	}}

	f := &AWSFetcher{
		Regions: []string{"us-west-2", "cn-north-1"},
		NewClient: func(_ context.Context, region string) (ec2.DescribeInstancesAPIClient, error) {
			if region == "cn-north-1" {
				return nil, errors.New("region not enabled")
			}
			return west, nil
		},
		Now: func() time.Time { return now },
	}

	instances, err := f.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, 2, west.calls)

	first := instances[0]
	assert.Equal(t, "i-1", first.InstanceID)
	assert.Equal(t, "111122223333", first.AccountID)
	assert.Equal(t, "us-west-2", first.Region)
	assert.Equal(t, policy.TargetAWS, first.Target)
	assert.Equal(t, []string{"eni-i-1"}, first.NetworkInterfaceIDs)
	assert.Equal(t, []string{"10.1.2.0/24"}, first.PrivateIPs)
	assert.Equal(t, []policy.Tag{{Key: "app", Value: "web"}}, first.Tags)
	assert.Equal(t, now, first.DiscoveredAt)

	assert.Equal(t, "i-2", instances[1].InstanceID)
	assert.Empty(t, instances[1].Tags)
}

func TestAWSFetcherDiscover_AllRegionsFail(t *testing.T) {
	f := &AWSFetcher{
		Regions: []string{"us-east-1", "us-east-2"},
		NewClient: func(context.Context, string) (ec2.DescribeInstancesAPIClient, error) {
			return nil, errors.New("no credentials")
		},
		Now: time.Now,
	}

	_, err := f.Discover(context.Background())
	assert.ErrorContains(t, err, "no credentials")
}

func TestInstanceFromEC2_PublicAddresses(t *testing.T) {
	inst := types.Instance{
		InstanceId:      aws.String("i-9"),
		PublicIpAddress: aws.String("54.1.2.3"),
		NetworkInterfaces: []types.InstanceNetworkInterface{{
			PrivateIpAddresses: []types.InstancePrivateIpAddress{{
				PrivateIpAddress: aws.String("172.31.4.5"),
				Association:      &types.InstanceNetworkInterfaceAssociation{PublicIp: aws.String("54.1.2.3")},
			}},
		}},
	}

	got := instanceFromEC2(types.Reservation{}, inst, "eu-west-1", time.Time{})
	assert.Equal(t, []string{"172.31.4.0/24"}, got.PrivateIPs)
	assert.Equal(t, []string{"54.1.2.3/32"}, got.PublicIPs)
	assert.Nil(t, got.NetworkInterfaceIDs)
}

func TestNewAWSFetcher_DefaultsToAllRegions(t *testing.T) {
	f := NewAWSFetcher(nil)
	assert.Equal(t, policy.AWSRegions, f.Regions)
}
