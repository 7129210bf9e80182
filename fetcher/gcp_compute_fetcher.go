// fetcher/gcp_compute_fetcher.go
package fetcher

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/rahulwagh/policymig/policy"
)

// tagPattern is what a metadata key or value must look like to be usable
// as a key=value selector tag.
var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)

// GCPFetcher discovers compute instances. With a Project set only that
// project is scanned; otherwise the organization (or every visible project)
// is searched.
type GCPFetcher struct {
	Project         string
	CredentialsFile string
	Now             func() time.Time
}

func NewGCPFetcher(project, credentialsFile string) *GCPFetcher {
	return &GCPFetcher{Project: project, CredentialsFile: credentialsFile, Now: time.Now}
}

func (f *GCPFetcher) Target() policy.Target { return policy.TargetGCP }

func (f *GCPFetcher) clientOptions() []option.ClientOption {
	if f.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(f.CredentialsFile)}
}

func (f *GCPFetcher) Discover(ctx context.Context) ([]Instance, error) {
	if f.Project != "" {
		return f.FetchProjectInstances(ctx, f.Project)
	}

	orgID, err := DiscoverGCPOrganization(ctx, f.clientOptions()...)
	if err != nil {
		log.Warnf("could not look up a GCP organization, falling back to project listing: %v", err)
	}
	if orgID != "" {
		return f.FetchInstancesFromOrg(ctx, orgID)
	}
	return f.FetchInstancesNoOrg(ctx)
}

// FetchProjectInstances lists every instance of a single project through the
// compute aggregated list.
func (f *GCPFetcher) FetchProjectInstances(ctx context.Context, projectID string) ([]Instance, error) {
	computeService, err := compute.NewService(ctx, f.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service for project %s: %w", projectID, err)
	}
	log.Infof("   -> Fetching instances for project: %s", projectID)

	var instances []Instance
	err = computeService.Instances.AggregatedList(projectID).Pages(ctx, func(page *compute.InstanceAggregatedList) error {
		for _, scope := range slices.Sorted(maps.Keys(page.Items)) {
			scoped := page.Items[scope]
			// zones without instances only carry a warning
			if scoped.Warning != nil {
				continue
			}
			for _, inst := range scoped.Instances {
				instances = append(instances, instanceFromCompute(projectID, inst, f.Now()))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for project %s: %w", projectID, err)
	}
	return instances, nil
}

func instanceFromCompute(projectID string, inst *compute.Instance, now time.Time) Instance {
	out := Instance{
		InstanceID:   strconv.FormatUint(inst.Id, 10),
		AccountID:    projectID,
		Region:       extractResourceName(inst.Zone),
		Target:       policy.TargetGCP,
		PrivateIPs:   []string{},
		Tags:         []policy.Tag{},
		DiscoveredAt: now,
	}

	for _, nif := range inst.NetworkInterfaces {
		if nif.Name != "" {
			out.NetworkInterfaceIDs = append(out.NetworkInterfaceIDs, nif.Name)
		}
		if cidr, ok := privateRange(nif.NetworkIP); ok {
			out.PrivateIPs = appendUnique(out.PrivateIPs, cidr)
		}
		for _, ac := range nif.AccessConfigs {
			if cidr, ok := publicRange(ac.NatIP); ok {
				out.PublicIPs = appendUnique(out.PublicIPs, cidr)
			}
		}
	}

	for _, key := range slices.Sorted(maps.Keys(inst.Labels)) {
		out.Tags = append(out.Tags, policy.Tag{Key: key, Value: inst.Labels[key]})
	}
	if inst.Metadata != nil {
		for _, item := range inst.Metadata.Items {
			if item.Value == nil || !tagPattern.MatchString(item.Key) || !tagPattern.MatchString(*item.Value) {
				continue
			}
			out.Tags = append(out.Tags, policy.Tag{Key: item.Key, Value: *item.Value})
		}
	}
	return out
}

// extractResourceName extracts the resource name from a full GCP resource path
// Example: "https://www.googleapis.com/compute/v1/projects/p/zones/us-central1-a" -> "us-central1-a"
func extractResourceName(resourcePath string) string {
	if resourcePath == "" {
		return "N/A"
	}
	parts := strings.Split(resourcePath, "/")
	return parts[len(parts)-1]
}
