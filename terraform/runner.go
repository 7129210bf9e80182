// terraform/runner.go
package terraform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/terraform-exec/tfexec"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 180 * time.Second
	planFile       = "plan.out"
)

// Runner runs the terraform binary in generated directories.
type Runner struct {
	execPath string
	timeout  time.Duration
	output   io.Writer
}

// NewRunner looks terraform up on PATH when execPath is empty. Command
// output goes to output when it is non-nil.
func NewRunner(execPath string, timeout time.Duration, output io.Writer) (*Runner, error) {
	if execPath == "" {
		path, err := exec.LookPath("terraform")
		if err != nil {
			return nil, fmt.Errorf("failed to find terraform on PATH: %w", err)
		}
		execPath = path
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{execPath: execPath, timeout: timeout, output: output}, nil
}

func (r *Runner) terraform(dir string) (*tfexec.Terraform, error) {
	tf, err := tfexec.NewTerraform(dir, r.execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set up terraform in %s: %w", dir, err)
	}
	if r.output != nil {
		tf.SetStdout(r.output)
		tf.SetStderr(r.output)
	}
	return tf, nil
}

// Apply runs init, plan -out plan.out and apply plan.out in dir. The
// timeout covers all three steps.
func (r *Runner) Apply(ctx context.Context, dir string) error {
	tf, err := r.terraform(dir)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Infof("Running terraform in %s", dir)
	if err := tf.Init(ctx); err != nil {
		return fmt.Errorf("terraform init failed in %s: %w", dir, err)
	}
	if _, err := tf.Plan(ctx, tfexec.Out(planFile)); err != nil {
		return fmt.Errorf("terraform plan failed in %s: %w", dir, err)
	}
	if err := tf.Apply(ctx, tfexec.DirOrPlan(planFile)); err != nil {
		return fmt.Errorf("terraform apply failed in %s: %w", dir, err)
	}
	return nil
}

// Destroy tears down everything managed from dir.
func (r *Runner) Destroy(ctx context.Context, dir string) error {
	tf, err := r.terraform(dir)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Infof("Destroying resources in %s", dir)
	if err := tf.Init(ctx); err != nil {
		return fmt.Errorf("terraform init failed in %s: %w", dir, err)
	}
	if err := tf.Destroy(ctx); err != nil {
		return fmt.Errorf("terraform destroy failed in %s: %w", dir, err)
	}
	return nil
}

// WorkDirs finds the generated working directories under outputDir: the
// gcp directory and one directory per aws region, each holding a
// provider.tf. A missing outputDir has none.
func WorkDirs(outputDir string) ([]string, error) {
	var dirs []string
	if hasProvider(GCPDir(outputDir)) {
		dirs = append(dirs, GCPDir(outputDir))
	}

	entries, err := os.ReadDir(filepath.Join(outputDir, "aws"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list aws directories: %w", err)
	}
	var regions []string
	for _, e := range entries {
		if e.IsDir() && hasProvider(AWSDir(outputDir, e.Name())) {
			regions = append(regions, e.Name())
		}
	}
	sort.Strings(regions)
	for _, region := range regions {
		dirs = append(dirs, AWSDir(outputDir, region))
	}
	return dirs, nil
}

func hasProvider(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, providerFile))
	return err == nil && !info.IsDir()
}
