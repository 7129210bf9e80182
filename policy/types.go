// policy/types.go

// Package policy holds the cloud-agnostic network security policy model.
// Policies and rules are immutable once built and can only be obtained
// through New and NewRule, which validate every field.
package policy

import "strings"

// Target is a cloud provider a policy is shaped for.
type Target string

const (
	TargetAWS Target = "aws"
	TargetGCP Target = "gcp"
)

// Targets lists every supported provider.
var Targets = []Target{TargetAWS, TargetGCP}

// Direction is the traffic direction of a policy.
type Direction string

const (
	Ingress Direction = "INGRESS"
	Egress  Direction = "EGRESS"
)

// Action is what a rule does with matching traffic.
type Action string

const (
	Allow Action = "allow"
	Deny  Action = "deny"
)

// Protocol is an IP protocol name understood by both providers' firewalls.
type Protocol string

const (
	TCP  Protocol = "tcp"
	UDP  Protocol = "udp"
	ICMP Protocol = "icmp"
	ESP  Protocol = "esp"
	AH   Protocol = "ah"
	SCTP Protocol = "sctp"
	All  Protocol = "all"
)

// AWSRegions is the fixed set of region codes accepted for AWS policies.
var AWSRegions = []string{
	"us-east-2", "us-east-1", "us-west-1", "us-west-2", "ap-east-1", "ap-south-1", "ap-northeast-3", "ap-northeast-2",
	"ap-southeast-1", "ap-southeast-2", "ap-northeast-1", "ca-central-1", "cn-north-1", "cn-northwest-1",
	"eu-central-1", "eu-west-1", "eu-west-2", "eu-west-3", "eu-north-1", "me-south-1", "sa-east-1", "us-gov-east-1",
	"us-gov-west-1",
}

// Tag is one key=value pair used to select instances.
// Keys are not unique within a tag set.
type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// String renders the tag as key=value.
func (t Tag) String() string {
	return t.Key + "=" + t.Value
}

// ParseTag splits a key=value string on the first '='.
func ParseTag(s string) (Tag, bool) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return Tag{}, false
	}
	return Tag{Key: key, Value: value}, true
}

// SelectorKind tells which variant a Selector holds.
type SelectorKind int

const (
	SelectorNone SelectorKind = iota
	SelectorIPs
	SelectorTags
)

func (k SelectorKind) String() string {
	switch k {
	case SelectorIPs:
		return "ips"
	case SelectorTags:
		return "tags"
	default:
		return "none"
	}
}

// Selector identifies endpoints either by literal CIDRs or by instance tags.
type Selector struct {
	kind SelectorKind
	ips  []string
	tags []Tag
}

// Kind returns the populated variant.
func (s Selector) Kind() SelectorKind { return s.kind }

// IPs returns a copy of the CIDR list, nil unless Kind is SelectorIPs.
func (s Selector) IPs() []string {
	if s.kind != SelectorIPs {
		return nil
	}
	return append([]string{}, s.ips...)
}

// Tags returns a copy of the tag set, nil unless Kind is SelectorTags.
func (s Selector) Tags() []Tag {
	if s.kind != SelectorTags {
		return nil
	}
	return append([]Tag{}, s.tags...)
}

func ipSelector(ips []string) Selector {
	return Selector{kind: SelectorIPs, ips: append([]string{}, ips...)}
}

func tagSelector(tags []Tag) Selector {
	return Selector{kind: SelectorTags, tags: append([]Tag{}, tags...)}
}

func selectorFrom(ips []string, tags []Tag) Selector {
	switch {
	case ips != nil:
		return ipSelector(ips)
	case tags != nil:
		return tagSelector(tags)
	default:
		return Selector{}
	}
}
