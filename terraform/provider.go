// terraform/provider.go
package terraform

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Versions are the provider version constraints written to provider.tf.
type Versions struct {
	AWS string
	GCP string
}

// DefaultVersions pins the provider releases the generated blocks were
// written against.
var DefaultVersions = Versions{
	AWS: "~> 2.28.1",
	GCP: "~> 2.15.0",
}

func requiredProvider(f *hclwrite.File, name, source, version string) {
	tf := f.Body().AppendNewBlock("terraform", nil).Body()
	providers := tf.AppendNewBlock("required_providers", nil).Body()
	providers.SetAttributeValue(name, cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal(source),
		"version": cty.StringVal(version),
	}))
	f.Body().AppendNewline()
}

// GCPProvider renders the google provider for project. An empty
// credentials path leaves authentication to application default
// credentials.
func GCPProvider(version, project, credentials string) []byte {
	f := hclwrite.NewEmptyFile()
	requiredProvider(f, "google", "hashicorp/google", version)

	body := f.Body().AppendNewBlock("provider", []string{"google"}).Body()
	body.SetAttributeValue("project", cty.StringVal(project))
	if credentials != "" {
		body.SetAttributeRaw("credentials", hclwrite.TokensForFunctionCall("file",
			hclwrite.TokensForValue(cty.StringVal(credentials))))
	}
	return finish(f)
}

// AWSProvider renders the aws provider for region.
func AWSProvider(version, region string) []byte {
	f := hclwrite.NewEmptyFile()
	requiredProvider(f, "aws", "hashicorp/aws", version)

	body := f.Body().AppendNewBlock("provider", []string{"aws"}).Body()
	body.SetAttributeValue("region", cty.StringVal(region))
	return finish(f)
}
