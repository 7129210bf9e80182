// cmd/schema.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/policyfile"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the policy file format.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := policyfile.Schema()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
