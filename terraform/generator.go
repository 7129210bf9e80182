// terraform/generator.go

// Package terraform renders validated policies as Terraform resources and
// drives the terraform binary over the generated directories.
package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/resolver"
)

const (
	DefaultOutputDir = "terraform-resources"

	providerFile  = "provider.tf"
	firewallsFile = "firewalls.tf"
)

// EndpointResolver expands the selectors of a policy into CIDR lists.
type EndpointResolver interface {
	ResolvePolicy(p *policy.Policy) (resolver.Endpoints, error)
}

type Options struct {
	OutputDir      string
	GCPProject     string
	GCPCredentials string
	Versions       Versions
	Namer          Namer
	Now            func() time.Time
}

// Generator writes policies into per-provider directories for the length of
// one run. Provider blocks are written once per directory per run;
// firewalls.tf is only ever appended to. A Generator is not safe for
// concurrent use and no other process may write the same output dir.
type Generator struct {
	opts     Options
	resolver EndpointResolver

	gcpReady   bool
	awsRegions map[string]bool
	dirs       []string
}

func NewGenerator(r EndpointResolver, opts Options) *Generator {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.Versions.AWS == "" {
		opts.Versions.AWS = DefaultVersions.AWS
	}
	if opts.Versions.GCP == "" {
		opts.Versions.GCP = DefaultVersions.GCP
	}
	if opts.Namer == nil {
		opts.Namer = NewRandomNamer(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts, resolver: r, awsRegions: map[string]bool{}}
}

// GCPDir and AWSDir are the working directories for each provider.
func GCPDir(outputDir string) string { return filepath.Join(outputDir, string(policy.TargetGCP)) }

func AWSDir(outputDir, region string) string {
	return filepath.Join(outputDir, string(policy.TargetAWS), region)
}

// Generate resolves p's selectors and appends its resources to the
// directory of its target.
func (g *Generator) Generate(p *policy.Policy) error {
	ep, err := g.resolver.ResolvePolicy(p)
	if err != nil {
		return fmt.Errorf("failed to resolve endpoints of policy %q: %w", p.Name(), err)
	}

	var dir string
	var fragment []byte
	switch p.Target() {
	case policy.TargetGCP:
		if dir, err = g.ensureGCP(); err != nil {
			return err
		}
		fragment, err = RenderGCP(p, ep, g.opts.Namer)
	case policy.TargetAWS:
		region, _ := p.Region()
		if dir, err = g.ensureAWS(region); err != nil {
			return err
		}
		fragment, err = RenderAWS(p, ep, g.opts.Namer, g.opts.Now())
	default:
		return fmt.Errorf("%w: unknown target %q", ErrWrongTarget, p.Target())
	}
	if err != nil {
		return err
	}

	if err := appendFile(filepath.Join(dir, firewallsFile), fragment); err != nil {
		return err
	}
	log.Debugf("Wrote %d rules of policy %s to %s", len(p.Rules()), p.Name(), dir)
	return nil
}

// GenerateAll stops at the first policy that fails.
func (g *Generator) GenerateAll(policies []*policy.Policy) error {
	for _, p := range policies {
		if err := g.Generate(p); err != nil {
			return err
		}
	}
	return nil
}

// Dirs lists the directories written during this run in first-write order.
func (g *Generator) Dirs() []string {
	return append([]string(nil), g.dirs...)
}

func (g *Generator) ensureGCP() (string, error) {
	dir := GCPDir(g.opts.OutputDir)
	if g.gcpReady {
		return dir, nil
	}
	if g.opts.GCPProject == "" {
		return "", ErrGCPProjectRequired
	}
	block := GCPProvider(g.opts.Versions.GCP, g.opts.GCPProject, g.opts.GCPCredentials)
	if err := writeProvider(dir, block); err != nil {
		return "", err
	}
	g.gcpReady = true
	g.dirs = append(g.dirs, dir)
	return dir, nil
}

func (g *Generator) ensureAWS(region string) (string, error) {
	dir := AWSDir(g.opts.OutputDir, region)
	if g.awsRegions[region] {
		return dir, nil
	}
	if err := writeProvider(dir, AWSProvider(g.opts.Versions.AWS, region)); err != nil {
		return "", err
	}
	g.awsRegions[region] = true
	g.dirs = append(g.dirs, dir)
	return dir, nil
}

// writeProvider replaces provider.tf in dir.
func writeProvider(dir string, block []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, providerFile)
	if err := os.WriteFile(path, block, 0644); err != nil {
		return fmt.Errorf("failed to write provider block: %w", err)
	}
	log.Debugf("Wrote provider block to %s", path)
	return nil
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}
