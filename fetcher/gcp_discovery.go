// fetcher/gcp_discovery.go
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	asset "cloud.google.com/go/asset/apiv1"
	"cloud.google.com/go/asset/apiv1/assetpb"
	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rahulwagh/policymig/policy"
)

const computeInstanceAssetType = "compute.googleapis.com/Instance"

// DiscoverGCPOrganization searches for an organization the caller can access.
// An empty name with a nil error means none is visible.
func DiscoverGCPOrganization(ctx context.Context, opts ...option.ClientOption) (string, error) {
	orgClient, err := resourcemanager.NewOrganizationsClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create organizations client: %w", err)
	}
	defer orgClient.Close()

	log.Info("Checking for a GCP Organization...")
	it := orgClient.SearchOrganizations(ctx, &resourcemanagerpb.SearchOrganizationsRequest{})
	firstOrg, err := it.Next()
	if errors.Is(err, iterator.Done) {
		log.Info("No GCP Organization found.")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed during organization search: %w", err)
	}
	log.Infof("Found GCP Organization: %s", firstOrg.DisplayName)
	return firstOrg.Name, nil
}

// FetchInstancesFromOrg uses the Cloud Asset API to find every compute
// instance below the organization in one search.
func (f *GCPFetcher) FetchInstancesFromOrg(ctx context.Context, organizationID string) ([]Instance, error) {
	client, err := asset.NewClient(ctx, f.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset client: %w", err)
	}
	defer client.Close()

	log.Infof("Fetching all GCP instances for organization %s", organizationID)
	it := client.SearchAllResources(ctx, &assetpb.SearchAllResourcesRequest{
		Scope:      organizationID,
		AssetTypes: []string{computeInstanceAssetType},
	})

	var instances []Instance
	for {
		resource, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed during asset iteration: %w", err)
		}
		instances = append(instances, f.instanceFromAsset(resource))
	}
	return instances, nil
}

func (f *GCPFetcher) instanceFromAsset(resource *assetpb.ResourceSearchResult) Instance {
	out := Instance{
		InstanceID:   extractResourceName(resource.GetName()),
		AccountID:    projectFromResourceName(resource.GetName()),
		Region:       resource.GetLocation(),
		Target:       policy.TargetGCP,
		PrivateIPs:   []string{},
		Tags:         []policy.Tag{},
		DiscoveredAt: f.Now(),
	}

	if attrs := resource.GetAdditionalAttributes(); attrs != nil {
		fields := attrs.GetFields()
		if id := fields["id"].GetStringValue(); id != "" {
			out.InstanceID = id
		}
		for _, ip := range stringValues(fields["internalIPs"]) {
			if cidr, ok := privateRange(ip); ok {
				out.PrivateIPs = appendUnique(out.PrivateIPs, cidr)
			}
		}
		for _, ip := range stringValues(fields["externalIPs"]) {
			if cidr, ok := publicRange(ip); ok {
				out.PublicIPs = appendUnique(out.PublicIPs, cidr)
			}
		}
	}

	labels := resource.GetLabels()
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		out.Tags = append(out.Tags, policy.Tag{Key: key, Value: labels[key]})
	}
	return out
}

// FetchInstancesNoOrg lists every accessible project with the Resource
// Manager v1 API and scans them one at a time. A project that cannot be
// scanned (compute API disabled, no permission) is skipped with a warning.
func (f *GCPFetcher) FetchInstancesNoOrg(ctx context.Context) ([]Instance, error) {
	crmService, err := cloudresourcemanager.NewService(ctx, f.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudresourcemanager service: %w", err)
	}
	log.Info("No GCP Organization ID provided. Fetching all accessible projects using v1 API...")

	var projectIDs []string
	err = crmService.Projects.List().Pages(ctx, func(page *cloudresourcemanager.ListProjectsResponse) error {
		for _, project := range page.Projects {
			if project.LifecycleState != "" && project.LifecycleState != "ACTIVE" {
				continue
			}
			projectIDs = append(projectIDs, project.ProjectId)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var instances []Instance
	for _, projectID := range projectIDs {
		found, err := f.FetchProjectInstances(ctx, projectID)
		if err != nil {
			log.Warnf("could not fetch instances for project %s: %v", projectID, err)
			continue
		}
		instances = append(instances, found...)
	}
	return instances, nil
}

// projectFromResourceName pulls the project id out of an asset name such as
// //compute.googleapis.com/projects/my-proj/zones/us-east1-b/instances/vm-1.
func projectFromResourceName(name string) string {
	parts := strings.Split(name, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "projects" {
			return parts[i+1]
		}
	}
	return "N/A"
}

func stringValues(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		if s := item.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
