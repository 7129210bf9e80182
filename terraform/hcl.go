// terraform/hcl.go
package terraform

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/rahulwagh/policymig/policy"
)

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.StringVal(v)
	}
	return cty.ListVal(vals)
}

// ruleKey is the content part of a deterministic resource id.
func ruleKey(r policy.Rule) string {
	return fmt.Sprintf("%s/%s/%v", r.Action(), r.Protocol(), r.Ports())
}

// finish formats f; every fragment ends with a blank line so fragments
// can be appended back to back.
func finish(f *hclwrite.File) []byte {
	return hclwrite.Format(f.Bytes())
}
