// fetcher/aws_fetcher.go
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/policy"
)

// EC2ClientFactory builds a DescribeInstances client for one region.
type EC2ClientFactory func(ctx context.Context, region string) (ec2.DescribeInstancesAPIClient, error)

// AWSFetcher walks every configured region and collects EC2 instances.
type AWSFetcher struct {
	Regions   []string
	NewClient EC2ClientFactory
	Now       func() time.Time
}

// NewAWSFetcher uses the default credential chain. With no regions given
// every known region is scanned.
func NewAWSFetcher(regions []string) *AWSFetcher {
	if len(regions) == 0 {
		regions = policy.AWSRegions
	}
	return &AWSFetcher{
		Regions:   regions,
		NewClient: defaultEC2Client,
		Now:       time.Now,
	}
}

func defaultEC2Client(ctx context.Context, region string) (ec2.DescribeInstancesAPIClient, error) {
	// Load the default AWS configuration from ~/.aws/credentials
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func (f *AWSFetcher) Target() policy.Target { return policy.TargetAWS }

// Discover queries each region in turn. A failing region (not enabled for
// the account, no credentials for a partition) is logged and skipped; only
// when every region fails is an error returned.
func (f *AWSFetcher) Discover(ctx context.Context) ([]Instance, error) {
	var instances []Instance
	var lastErr error
	failed := 0

	log.Info("Fetching EC2 instances...")
	for _, region := range f.Regions {
		found, err := f.fetchRegion(ctx, region)
		if err != nil {
			log.Warnf("%s: %v", region, err)
			lastErr = err
			failed++
			continue
		}
		instances = append(instances, found...)
	}
	if failed > 0 && failed == len(f.Regions) {
		return nil, fmt.Errorf("failed to fetch EC2 instances in any region: %w", lastErr)
	}
	log.Infof("Successfully fetched %d EC2 instances.", len(instances))
	return instances, nil
}

func (f *AWSFetcher) fetchRegion(ctx context.Context, region string) ([]Instance, error) {
	client, err := f.NewClient(ctx, region)
	if err != nil {
		return nil, err
	}
	log.Debugf("   -> Fetching EC2 instances for region: %s", region)

	var instances []Instance
	// Use a Paginator to handle multiple pages of results
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get a page of EC2 instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, instanceFromEC2(reservation, inst, region, f.Now()))
			}
		}
	}
	return instances, nil
}

func instanceFromEC2(reservation types.Reservation, inst types.Instance, region string, now time.Time) Instance {
	out := Instance{
		InstanceID:   aws.ToString(inst.InstanceId),
		AccountID:    aws.ToString(reservation.OwnerId),
		Region:       region,
		Target:       policy.TargetAWS,
		PrivateIPs:   []string{},
		Tags:         []policy.Tag{},
		DiscoveredAt: now,
	}

	for _, nif := range inst.NetworkInterfaces {
		if id := aws.ToString(nif.NetworkInterfaceId); id != "" {
			out.NetworkInterfaceIDs = append(out.NetworkInterfaceIDs, id)
		}
		for _, addr := range nif.PrivateIpAddresses {
			if cidr, ok := privateRange(aws.ToString(addr.PrivateIpAddress)); ok {
				out.PrivateIPs = appendUnique(out.PrivateIPs, cidr)
			}
			if addr.Association != nil {
				if cidr, ok := publicRange(aws.ToString(addr.Association.PublicIp)); ok {
					out.PublicIPs = appendUnique(out.PublicIPs, cidr)
				}
			}
		}
	}
	// Instances without an ENI listing still report their primary addresses.
	if cidr, ok := privateRange(aws.ToString(inst.PrivateIpAddress)); ok {
		out.PrivateIPs = appendUnique(out.PrivateIPs, cidr)
	}
	if cidr, ok := publicRange(aws.ToString(inst.PublicIpAddress)); ok {
		out.PublicIPs = appendUnique(out.PublicIPs, cidr)
	}

	for _, tag := range inst.Tags {
		out.Tags = append(out.Tags, policy.Tag{Key: aws.ToString(tag.Key), Value: aws.ToString(tag.Value)})
	}
	return out
}
