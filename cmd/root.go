// cmd/root.go

// Package cmd is the policymig command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rahulwagh/policymig/cache"
	"github.com/rahulwagh/policymig/config"
)

// Exit codes.
const (
	ExitFailure          = 1
	ExitCommandFailure   = 2
	ExitDiscoveryNotDone = 3
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitFailure
}

var (
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "policymig",
	Short:         "Translate network security policies between clouds and apply them with Terraform.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			loaded.LogLevel, _ = flags.GetString("log-level")
		}
		if flags.Changed("output-dir") {
			loaded.OutputDir, _ = flags.GetString("output-dir")
		}
		if flags.Changed("store-driver") {
			loaded.Store.Driver, _ = flags.GetString("store-driver")
		}
		if flags.Changed("store") {
			loaded.Store.Path, _ = flags.GetString("store")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, err := log.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		cfg = loaded
		return nil
	},
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	defaults := config.Defaults()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "path to the config file")
	pf.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	pf.String("output-dir", defaults.OutputDir, "directory for generated Terraform")
	pf.String("store-driver", defaults.Store.Driver, "instance store driver (sqlite or json)")
	pf.String("store", defaults.Store.Path, "path to the instance store")
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func openStore() (cache.Store, error) {
	store, err := cache.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance store: %w", err)
	}
	return store, nil
}

// requireFile rejects paths that do not name an existing regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("policy file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("policy file %s is a directory", path)
	}
	return nil
}
