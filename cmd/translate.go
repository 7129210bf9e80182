// cmd/translate.go
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/policyfile"
	"github.com/rahulwagh/policymig/progress"
)

var translateOpts struct {
	file    string
	target  string
	region  string
	network string
	output  string
}

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate the policies in a file to another cloud.",
	Example: `  policymig translate -f policies.pcl -t aws -r us-west-2
  policymig translate -f policies.pcl -t gcp -n default`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFile(translateOpts.file); err != nil {
			return err
		}
		target := policy.Target(translateOpts.target)
		if target == policy.TargetAWS && translateOpts.region == "" {
			return fmt.Errorf("a region must be given with --region to translate to aws")
		}
		if target == policy.TargetGCP && translateOpts.network == "" {
			return fmt.Errorf("a network must be given with --network to translate to gcp")
		}

		policies, err := policyfile.ReadFile(translateOpts.file)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), `Only rules that "allow" traffic over "tcp", "udp" or "icmp" are retained!`)
		translated, err := progress.Run("Translating", "Saved to "+translateOpts.output, func() ([]*policy.Policy, error) {
			out := make([]*policy.Policy, 0, len(policies))
			for _, p := range policies {
				t, err := policy.Translate(p, target, translateOpts.region, translateOpts.network)
				if err != nil {
					return nil, fmt.Errorf("failed to translate policy %q: %w", p.Name(), err)
				}
				if dropped := len(p.Rules()) - len(t.Rules()); dropped > 0 {
					log.Warnf("Dropped %d rules of policy %s with no %s equivalent", dropped, p.Name(), target)
				}
				out = append(out, t)
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		return policyfile.AppendToFile(translateOpts.output, translated...)
	},
}

func init() {
	f := translateCmd.Flags()
	f.StringVarP(&translateOpts.file, "file", "f", "", "path to the policy file")
	f.StringVarP(&translateOpts.target, "target", "t", "", "target cloud (aws or gcp)")
	f.StringVarP(&translateOpts.region, "region", "r", "", "AWS region of the translated policies")
	f.StringVarP(&translateOpts.network, "network", "n", "", "GCP network of the translated policies")
	f.StringVarP(&translateOpts.output, "output", "o", "policies/translated_policies.json", "file the translated policies are appended to")
	translateCmd.MarkFlagRequired("file")
	translateCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(translateCmd)
}
