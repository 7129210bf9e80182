// policyfile/hcl.go
package policyfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/rahulwagh/policymig/policy"
)

// The HCL grammar nests rules one level deeper than JSON:
//
//	policy {
//	  name       = "web"
//	  target     = "gcp"
//	  sourceTags = ["app=web"]
//	  rules {
//	    rule {
//	      ports = ["22"]
//	    }
//	  }
//	}
type hclFile struct {
	Policies []hclPolicy `hcl:"policy,block"`
}

type hclPolicy struct {
	Name        string    `hcl:"name"`
	Description *string   `hcl:"description,optional"`
	Target      string    `hcl:"target"`
	Direction   *string   `hcl:"direction,optional"`
	Network     *string   `hcl:"network,optional"`
	Region      *string   `hcl:"region,optional"`
	SourceIPs   *[]string `hcl:"sourceIps,optional"`
	SourceTags  *[]string `hcl:"sourceTags,optional"`
	TargetIPs   *[]string `hcl:"targetIps,optional"`
	TargetTags  *[]string `hcl:"targetTags,optional"`
	Rules       *hclRules `hcl:"rules,block"`
}

type hclRules struct {
	Rules []hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Ports    []string `hcl:"ports,optional"`
	Action   *string  `hcl:"action,optional"`
	Protocol *string  `hcl:"protocol,optional"`
}

func decodeHCL(data []byte, filename string) ([]Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, malformed(FormatHCL, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, malformed(FormatHCL, diags)
	}

	docs := make([]Document, 0, len(parsed.Policies))
	for i, hp := range parsed.Policies {
		d, err := hp.document()
		if err != nil {
			return nil, malformed(FormatHCL, fmt.Errorf("policy %d (%q): %w", i, hp.Name, err))
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (hp hclPolicy) document() (Document, error) {
	if hp.Name == "" {
		return Document{}, fmt.Errorf("name must not be empty")
	}
	d := Document{
		Name:      hp.Name,
		Target:    hp.Target,
		Network:   hp.Network,
		Region:    hp.Region,
		SourceIPs: hp.SourceIPs,
		TargetIPs: hp.TargetIPs,
	}
	if hp.Description != nil {
		d.Description = *hp.Description
	}
	if hp.Direction != nil {
		d.Direction = *hp.Direction
	}

	var err error
	if d.SourceTags, err = parseTagStrings(hp.SourceTags); err != nil {
		return Document{}, fmt.Errorf("sourceTags: %w", err)
	}
	if d.TargetTags, err = parseTagStrings(hp.TargetTags); err != nil {
		return Document{}, fmt.Errorf("targetTags: %w", err)
	}

	if hp.Rules != nil {
		for _, r := range hp.Rules.Rules {
			rd := RuleDocument{Ports: r.Ports}
			if r.Action != nil {
				rd.Action = *r.Action
			}
			if r.Protocol != nil {
				rd.Protocol = *r.Protocol
			}
			d.Rules = append(d.Rules, rd)
		}
	}
	return d, nil
}

func parseTagStrings(raw *[]string) (*TagList, error) {
	if raw == nil {
		return nil, nil
	}
	tags := make(TagList, 0, len(*raw))
	for _, s := range *raw {
		t, ok := policy.ParseTag(s)
		if !ok {
			return nil, fmt.Errorf("tag %q is not in key=value form", s)
		}
		tags = append(tags, t)
	}
	return &tags, nil
}

func encodeHCL(docs []Document) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	for i, d := range docs {
		if i > 0 {
			root.AppendNewline()
		}
		body := root.AppendNewBlock("policy", nil).Body()
		body.SetAttributeValue("name", cty.StringVal(d.Name))
		if d.Description != "" {
			body.SetAttributeValue("description", cty.StringVal(d.Description))
		}
		body.SetAttributeValue("target", cty.StringVal(d.Target))
		body.SetAttributeValue("direction", cty.StringVal(d.Direction))
		if d.Network != nil {
			body.SetAttributeValue("network", cty.StringVal(*d.Network))
		}
		if d.Region != nil {
			body.SetAttributeValue("region", cty.StringVal(*d.Region))
		}
		setStringList(body, "sourceIps", d.SourceIPs)
		setTagList(body, "sourceTags", d.SourceTags)
		setStringList(body, "targetIps", d.TargetIPs)
		setTagList(body, "targetTags", d.TargetTags)

		rules := body.AppendNewBlock("rules", nil).Body()
		for _, r := range d.Rules {
			rule := rules.AppendNewBlock("rule", nil).Body()
			rule.SetAttributeValue("ports", stringList(r.Ports))
			rule.SetAttributeValue("action", cty.StringVal(r.Action))
			rule.SetAttributeValue("protocol", cty.StringVal(r.Protocol))
		}
	}
	return hclwrite.Format(f.Bytes())
}

func setStringList(body *hclwrite.Body, name string, values *[]string) {
	if values == nil {
		return
	}
	body.SetAttributeValue(name, stringList(*values))
}

func setTagList(body *hclwrite.Body, name string, tags *TagList) {
	if tags == nil {
		return
	}
	values := make([]string, 0, len(*tags))
	for _, t := range *tags {
		values = append(values, t.String())
	}
	body.SetAttributeValue(name, stringList(values))
}

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	out := make([]cty.Value, 0, len(values))
	for _, v := range values {
		out = append(out, cty.StringVal(v))
	}
	return cty.ListVal(out)
}
