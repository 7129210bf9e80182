// terraform/gcp.go
package terraform

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/resolver"
)

// RenderGCP emits one google_compute_firewall resource per rule of p.
// A side of ep that is nil is left out of the block; an empty side is
// written as an empty list.
func RenderGCP(p *policy.Policy, ep resolver.Endpoints, ids Namer) ([]byte, error) {
	if p.Target() != policy.TargetGCP {
		return nil, fmt.Errorf("%w: policy %q targets %s, not gcp", ErrWrongTarget, p.Name(), p.Target())
	}
	network, ok := p.Network()
	if !ok {
		return nil, fmt.Errorf("%w: gcp policy %q has no network", ErrMissingPlacement, p.Name())
	}

	f := hclwrite.NewEmptyFile()
	root := f.Body()
	for i, rule := range p.Rules() {
		id := ids.ResourceID(string(policy.TargetGCP), p.Name(), strconv.Itoa(i), ruleKey(rule))
		body := root.AppendNewBlock("resource", []string{"google_compute_firewall", id}).Body()

		body.SetAttributeValue("name", cty.StringVal(p.Name()+strconv.Itoa(i)))
		body.SetAttributeValue("network", cty.StringVal(network))
		body.SetAttributeValue("direction", cty.StringVal(string(p.Direction())))
		body.SetAttributeValue("description", cty.StringVal(p.Description()))
		if ep.Source != nil {
			body.SetAttributeValue("source_ranges", stringList(ep.Source))
		}
		if ep.Target != nil {
			body.SetAttributeValue("destination_ranges", stringList(ep.Target))
		}

		action := body.AppendNewBlock(string(rule.Action()), nil).Body()
		action.SetAttributeValue("protocol", cty.StringVal(string(rule.Protocol())))
		action.SetAttributeValue("ports", stringList(rule.Ports()))
		root.AppendNewline()
	}
	return finish(f), nil
}
