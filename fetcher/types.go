// fetcher/types.go
package fetcher

import (
	"context"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/rahulwagh/policymig/policy"
)

// Instance is our common format for a discovered compute node on any cloud.
type Instance struct {
	InstanceID          string        `json:"instanceId"`
	AccountID           string        `json:"accountId"`
	Region              string        `json:"region"`
	Target              policy.Target `json:"target"`
	NetworkInterfaceIDs []string      `json:"networkInterfaceIds,omitempty"`
	PrivateIPs          []string      `json:"privateIps"`
	PublicIPs           []string      `json:"publicIps,omitempty"`
	Tags                []policy.Tag  `json:"tags"`
	DiscoveredAt        time.Time     `json:"discoveredAt"`
}

// HasAnyTag reports whether at least one of tags is present on the instance
// as an exact key=value pair.
func (i Instance) HasAnyTag(tags []policy.Tag) bool {
	for _, want := range tags {
		if slices.Contains(i.Tags, want) {
			return true
		}
	}
	return false
}

// Title is the one-line label used by the search UIs.
func (i Instance) Title() string {
	tags := make([]string, 0, len(i.Tags))
	for _, t := range i.Tags {
		tags = append(tags, t.String())
	}
	return strings.Join([]string{string(i.Target), i.Region, i.InstanceID, strings.Join(tags, ",")}, " | ")
}

// Discoverer enumerates the live instances of one provider.
type Discoverer interface {
	Target() policy.Target
	Discover(ctx context.Context) ([]Instance, error)
}

// privateRange records a private address as its containing /24.
func privateRange(addr string) (string, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil || !ip.Is4() {
		return "", false
	}
	prefix, err := ip.Prefix(24)
	if err != nil {
		return "", false
	}
	return prefix.String(), true
}

// publicRange records a public address as a single host /32.
func publicRange(addr string) (string, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil || !ip.Is4() {
		return "", false
	}
	return netip.PrefixFrom(ip, 32).String(), true
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
