// cmd/apply.go
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/cache"
	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/policyfile"
	"github.com/rahulwagh/policymig/progress"
	"github.com/rahulwagh/policymig/resolver"
	"github.com/rahulwagh/policymig/terraform"
)

var applyOpts struct {
	file        string
	project     string
	credentials string
	naming      string
	skipApply   bool
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Generate Terraform for the policies in a file and apply it.",
	Example: `  policymig apply -f policies.pcl -p my-project -c creds.json
  policymig apply -f policies.json --skip-apply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFile(applyOpts.file); err != nil {
			return err
		}
		policies, err := policyfile.ReadFile(applyOpts.file)
		if err != nil {
			return err
		}
		if len(policies) == 0 {
			log.Infof("No policies in %s", applyOpts.file)
			return nil
		}
		if !hasTarget(policies, policy.TargetGCP) && (applyOpts.project != "" || applyOpts.credentials != "") {
			log.Warn("Project and/or credentials file are not required for AWS")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := checkDiscovered(store, policies); err != nil {
			return withExitCode(ExitDiscoveryNotDone, err)
		}

		naming := cfg.Naming
		if applyOpts.naming != "" {
			naming = applyOpts.naming
		}
		namer, err := terraform.NewNamer(naming)
		if err != nil {
			return err
		}

		gen := terraform.NewGenerator(resolver.New(store), terraform.Options{
			OutputDir:      cfg.OutputDir,
			GCPProject:     applyOpts.project,
			GCPCredentials: applyOpts.credentials,
			Versions:       cfg.Providers.Versions(),
			Namer:          namer,
		})
		if err := gen.GenerateAll(policies); err != nil {
			return err
		}
		log.Infof("Generated Terraform for %d policies in %v", len(policies), gen.Dirs())
		if applyOpts.skipApply {
			return nil
		}

		output := log.StandardLogger().WriterLevel(log.DebugLevel)
		defer output.Close()
		runner, err := terraform.NewRunner(cfg.Terraform.Path, cfg.Terraform.Timeout, output)
		if err != nil {
			return withExitCode(ExitCommandFailure, err)
		}
		for _, dir := range gen.Dirs() {
			err := progress.Do(fmt.Sprintf("Applying policies in %s", dir), "Policy application complete", func() error {
				return runner.Apply(cmd.Context(), dir)
			})
			if err != nil {
				return withExitCode(ExitCommandFailure, err)
			}
		}
		return nil
	},
}

func hasTarget(policies []*policy.Policy, target policy.Target) bool {
	for _, p := range policies {
		if p.Target() == target {
			return true
		}
	}
	return false
}

// checkDiscovered fails when a policy selects by tag but the inventory
// holds nothing for its target.
func checkDiscovered(store cache.Store, policies []*policy.Policy) error {
	checked := map[policy.Target]bool{}
	for _, p := range policies {
		usesTags := p.SourceSelector().Kind() == policy.SelectorTags || p.TargetSelector().Kind() == policy.SelectorTags
		if !usesTags || checked[p.Target()] {
			continue
		}
		checked[p.Target()] = true
		instances, err := store.FetchInstances(p.Target())
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			return fmt.Errorf("policy %q selects %s instances by tag but none are stored; run discover -t %s first", p.Name(), p.Target(), p.Target())
		}
	}
	return nil
}

func init() {
	f := applyCmd.Flags()
	f.StringVarP(&applyOpts.file, "file", "f", "", "path to the policy file (.json, .yaml, .pcl)")
	f.StringVarP(&applyOpts.project, "project", "p", "", "GCP project for the google provider")
	f.StringVarP(&applyOpts.credentials, "credential", "c", "", "path to a GCP JSON credentials file")
	f.StringVar(&applyOpts.naming, "naming", "", "resource id scheme (random or deterministic)")
	f.BoolVar(&applyOpts.skipApply, "skip-apply", false, "only generate Terraform, do not run it")
	applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)
}
