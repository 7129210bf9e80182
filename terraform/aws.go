// terraform/aws.go
package terraform

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/resolver"
)

// RenderAWS emits one aws_security_group per (rule, port) pair of p, named
// <name><rule>-<port>. Each group carries a single ingress or egress block
// chosen by the policy direction. Rules without ports emit nothing.
func RenderAWS(p *policy.Policy, ep resolver.Endpoints, ids Namer, createdAt time.Time) ([]byte, error) {
	if p.Target() != policy.TargetAWS {
		return nil, fmt.Errorf("%w: policy %q targets %s, not aws", ErrWrongTarget, p.Name(), p.Target())
	}
	if _, ok := p.Region(); !ok {
		return nil, fmt.Errorf("%w: aws policy %q has no region", ErrMissingPlacement, p.Name())
	}

	cidrs := ep.Source
	if cidrs == nil {
		cidrs = ep.Target
	}
	direction := "ingress"
	if p.Direction() == policy.Egress {
		direction = "egress"
	}
	stamp := createdAt.UTC().Format(time.RFC3339)

	f := hclwrite.NewEmptyFile()
	root := f.Body()
	for i, rule := range p.Rules() {
		protocol := string(rule.Protocol())
		if rule.Protocol() == policy.All {
			protocol = "-1"
		}
		for j, port := range rule.Ports() {
			from, to, err := policy.SplitPort(port)
			if err != nil {
				return nil, fmt.Errorf("failed to split port %q of rule %d in policy %q: %w", port, i, p.Name(), err)
			}

			id := ids.ResourceID(string(policy.TargetAWS), p.Name(), strconv.Itoa(i), strconv.Itoa(j), ruleKey(rule))
			body := root.AppendNewBlock("resource", []string{"aws_security_group", id}).Body()
			body.SetAttributeValue("name", cty.StringVal(fmt.Sprintf("%s%d-%d", p.Name(), i, j)))
			body.SetAttributeValue("description", cty.StringVal(p.Description()))
			body.SetAttributeValue("tags", cty.MapVal(map[string]cty.Value{
				"createdAt": cty.StringVal(stamp),
			}))

			block := body.AppendNewBlock(direction, nil).Body()
			block.SetAttributeValue("from_port", cty.NumberIntVal(int64(from)))
			block.SetAttributeValue("to_port", cty.NumberIntVal(int64(to)))
			block.SetAttributeValue("protocol", cty.StringVal(protocol))
			if cidrs != nil {
				block.SetAttributeValue("cidr_blocks", stringList(cidrs))
			}
			root.AppendNewline()
		}
	}
	return finish(f), nil
}

// Render dispatches on the policy target.
func Render(p *policy.Policy, ep resolver.Endpoints, ids Namer, now time.Time) ([]byte, error) {
	switch p.Target() {
	case policy.TargetGCP:
		return RenderGCP(p, ep, ids)
	case policy.TargetAWS:
		return RenderAWS(p, ep, ids, now)
	default:
		return nil, fmt.Errorf("%w: unknown target %q", ErrWrongTarget, p.Target())
	}
}
