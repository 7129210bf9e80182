// cmd/search.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
)

var searchTarget string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the discovered instances with a fuzzy finder.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		instances, err := store.FetchInstances(policy.Target(searchTarget))
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			return withExitCode(ExitDiscoveryNotDone, errors.New("no instances stored; run discover first"))
		}

		idx, err := fuzzyfinder.Find(
			instances,
			func(i int) string { return instances[i].Title() },
			fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
				if i == -1 {
					return ""
				}
				return preview(instances[i])
			}),
		)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				log.Info("Search aborted.")
				return nil
			}
			return fmt.Errorf("fuzzy finder failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(instances[idx].PrivateIPs, "\n"))
		return nil
	},
}

func preview(inst fetcher.Instance) string {
	tags := make([]string, len(inst.Tags))
	for i, t := range inst.Tags {
		tags[i] = t.String()
	}
	return fmt.Sprintf("ID: %s\nTarget: %s\nAccount: %s\nRegion: %s\nPrivate: %s\nPublic: %s\nTags: %s\nDiscovered: %s",
		inst.InstanceID, inst.Target, inst.AccountID, inst.Region,
		strings.Join(inst.PrivateIPs, ", "), strings.Join(inst.PublicIPs, ", "),
		strings.Join(tags, ", "), inst.DiscoveredAt.Format("2006-01-02 15:04:05"))
}

func init() {
	searchCmd.Flags().StringVarP(&searchTarget, "target", "t", "", "only search instances of this cloud")
	rootCmd.AddCommand(searchCmd)
}
