// resolver/resolver.go

// Package resolver turns tag selectors into concrete CIDR lists using the
// discovered instance inventory.
package resolver

import (
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
)

// InstanceStore is the read side of the inventory.
type InstanceStore interface {
	FetchInstances(target policy.Target) ([]fetcher.Instance, error)
}

// Resolver queries the store on every call; nothing is cached between
// resolutions.
type Resolver struct {
	store InstanceStore
}

func New(store InstanceStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveTagsToIps returns the private ranges of every instance of target
// carrying at least one of tags. The result is sorted and has no
// duplicates. No match is an empty, non-nil result, not an error.
func (r *Resolver) ResolveTagsToIps(target policy.Target, tags []policy.Tag) ([]string, error) {
	instances, err := r.store.FetchInstances(target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s instances: %w", target, err)
	}
	if len(instances) == 0 {
		log.Warnf("no %s instances in the inventory; run discover first to resolve tags", target)
	}

	ips := []string{}
	for _, inst := range instances {
		if !inst.HasAnyTag(tags) {
			continue
		}
		ips = append(ips, inst.PrivateIPs...)
	}
	slices.Sort(ips)
	ips = slices.Compact(ips)

	log.Debugf("resolved %d %s tags to %d ranges", len(tags), target, len(ips))
	return ips, nil
}

// Resolve expands a selector: IP lists are returned as-is, tag sets are
// resolved against the inventory and an empty selector gives nil.
func (r *Resolver) Resolve(target policy.Target, sel policy.Selector) ([]string, error) {
	switch sel.Kind() {
	case policy.SelectorIPs:
		return sel.IPs(), nil
	case policy.SelectorTags:
		return r.ResolveTagsToIps(target, sel.Tags())
	default:
		return nil, nil
	}
}

// Endpoints holds the resolved CIDRs of both selector sides of a policy.
// A nil side was not populated.
type Endpoints struct {
	Source []string
	Target []string
}

// ResolvePolicy resolves both selector sides of p against p's own target.
func (r *Resolver) ResolvePolicy(p *policy.Policy) (Endpoints, error) {
	source, err := r.Resolve(p.Target(), p.SourceSelector())
	if err != nil {
		return Endpoints{}, err
	}
	target, err := r.Resolve(p.Target(), p.TargetSelector())
	if err != nil {
		return Endpoints{}, err
	}
	return Endpoints{Source: source, Target: target}, nil
}
