// cmd/clean.go
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/terraform"
)

var destroyResources bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clear the instance store and delete generated Terraform.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		err = store.Clear()
		store.Close()
		if err != nil {
			return err
		}

		if destroyResources {
			dirs, err := terraform.WorkDirs(cfg.OutputDir)
			if err != nil {
				return err
			}
			output := log.StandardLogger().WriterLevel(log.InfoLevel)
			defer output.Close()
			runner, err := terraform.NewRunner(cfg.Terraform.Path, cfg.Terraform.Timeout, output)
			if err != nil {
				return withExitCode(ExitCommandFailure, err)
			}
			for _, dir := range dirs {
				if err := runner.Destroy(cmd.Context(), dir); err != nil {
					return withExitCode(ExitCommandFailure, err)
				}
			}
		}

		if err := os.RemoveAll(cfg.OutputDir); err != nil {
			return fmt.Errorf("failed to delete %s: %w", cfg.OutputDir, err)
		}
		log.Info("All Terraform resources deleted!")
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVarP(&destroyResources, "destroy", "d", false, "destroy all resources created via Terraform first")
	rootCmd.AddCommand(cleanCmd)
}
