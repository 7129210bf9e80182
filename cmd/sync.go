// cmd/sync.go
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/progress"
)

var discoverOpts struct {
	target      string
	project     string
	credentials string
	regions     []string
}

var discoverCmd = &cobra.Command{
	Use:     "discover",
	Aliases: []string{"sync"},
	Short:   "Discover cloud VMs and update the local instance store.",
	Example: `  policymig discover -t aws
  policymig discover -t gcp -p my-project -c creds.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var discoverer fetcher.Discoverer
		switch policy.Target(discoverOpts.target) {
		case policy.TargetAWS:
			if discoverOpts.project != "" || discoverOpts.credentials != "" {
				log.Warn("Project and/or credentials file are not used for AWS")
			}
			discoverer = fetcher.NewAWSFetcher(discoverOpts.regions)
		case policy.TargetGCP:
			discoverer = fetcher.NewGCPFetcher(discoverOpts.project, discoverOpts.credentials)
		default:
			return fmt.Errorf("unknown target %q (want aws or gcp)", discoverOpts.target)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		log.Info("Starting instance discovery...")
		begin := fmt.Sprintf("Discovering on %s", discoverer.Target())
		instances, err := progress.Run(begin, "Discovery complete!", func() ([]fetcher.Instance, error) {
			return discoverer.Discover(cmd.Context())
		})
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			log.Infof("No instances on %s!", discoverer.Target())
			return nil
		}

		if err := store.SaveInstances(instances); err != nil {
			return err
		}
		log.Infof("Discovery completed successfully! Found %d instances.", len(instances))
		return nil
	},
}

func init() {
	f := discoverCmd.Flags()
	f.StringVarP(&discoverOpts.target, "target", "t", "", "cloud to discover (aws or gcp)")
	f.StringVarP(&discoverOpts.project, "project", "p", "", "GCP project; without it the whole organization is searched")
	f.StringVarP(&discoverOpts.credentials, "credential", "c", "", "path to a GCP JSON credentials file")
	f.StringSliceVar(&discoverOpts.regions, "regions", nil, "AWS regions to scan (default all)")
	discoverCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(discoverCmd)
}
