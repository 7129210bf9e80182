// cmd/validate.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/policyfile"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a policy file and summarize its policies.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFile(validateFile); err != nil {
			return err
		}
		policies, err := policyfile.ReadFile(validateFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTARGET\tDIRECTION\tPLACEMENT\tRULES")
		for _, p := range policies {
			placement, _ := p.Network()
			if region, ok := p.Region(); ok {
				placement = region
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.Name(), p.Target(), p.Direction(), placement, len(p.Rules()))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d policies are valid\n", len(policies))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "path to the policy file")
	validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}
