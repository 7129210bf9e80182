package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulwagh/policymig/policyfile"
)

type env struct {
	dir    string
	store  string
	output string
}

func newEnv(t *testing.T) env {
	dir := t.TempDir()
	return env{dir: dir, store: filepath.Join(dir, "inventory.db"), output: filepath.Join(dir, "terraform-resources")}
}

func (e env) run(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args,
		"--config", filepath.Join(e.dir, "config.yaml"),
		"--store", e.store,
		"--output-dir", e.output,
	))
	err := rootCmd.Execute()
	return out.String(), err
}

func (e env) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const gcpPolicies = `
policy {
  name      = "ssh"
  target    = "gcp"
  direction = "INGRESS"
  network   = "default"
  sourceIps = ["10.0.0.0/24"]
  rules {
    rule {
      ports    = ["22"]
      action   = "allow"
      protocol = "tcp"
    }
    rule {
      ports    = ["9000"]
      action   = "deny"
      protocol = "udp"
    }
  }
}
`

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, ExitCode(errors.New("bad")))
	assert.Equal(t, ExitCommandFailure, ExitCode(withExitCode(ExitCommandFailure, errors.New("terraform"))))
	assert.Nil(t, withExitCode(ExitCommandFailure, nil))
}

func TestValidateCommand(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "policies.pcl", gcpPolicies)

	out, err := e.run("validate", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "ssh")
	assert.Contains(t, out, "1 policies are valid")

	bad := e.write(t, "bad.pcl", `policy { name = "x" target = "azure" }`)
	_, err = e.run("validate", "-f", bad)
	assert.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	_, err = e.run("validate", "-f", filepath.Join(e.dir, "missing.pcl"))
	assert.Error(t, err)
}

func TestSchemaCommand(t *testing.T) {
	out, err := newEnv(t).run("schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"sourceTags"`)
}

func TestTranslateCommand(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "policies.pcl", gcpPolicies)
	output := filepath.Join(e.dir, "out", "translated.json")

	_, err := e.run("translate", "-f", file, "-t", "aws", "-r", "us-west-2", "-o", output)
	require.NoError(t, err)
	_, err = e.run("translate", "-f", file, "-t", "aws", "-r", "us-west-2", "-o", output)
	require.NoError(t, err)

	translated, err := policyfile.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, translated, 2)
	region, ok := translated[0].Region()
	assert.True(t, ok)
	assert.Equal(t, "us-west-2", region)
	assert.Len(t, translated[0].Rules(), 1)

	_, err = e.run("translate", "-f", file, "-t", "aws", "-r", "", "-o", output)
	assert.ErrorContains(t, err, "region must be given")
}

func TestApplyCommand_SkipApply(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "policies.pcl", gcpPolicies)

	_, err := e.run("apply", "-f", file, "-p", "demo-project", "--skip-apply")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(e.output, "gcp", "firewalls.tf"))
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte(`resource "google_compute_firewall"`)))
	assert.FileExists(t, filepath.Join(e.output, "gcp", "provider.tf"))
}

func TestApplyCommand_TagsNeedDiscovery(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "policies.json", `[{
		"name": "web",
		"target": "aws",
		"region": "us-west-2",
		"sourceTags": [{"app": "web"}],
		"rules": [{"ports": ["80"]}]
	}]`)

	_, err := e.run("apply", "-f", file, "-p", "", "--skip-apply")
	require.Error(t, err)
	assert.Equal(t, ExitDiscoveryNotDone, ExitCode(err))
	assert.ErrorContains(t, err, "run discover -t aws first")
}

func TestCleanCommand(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "policies.pcl", gcpPolicies)
	_, err := e.run("apply", "-f", file, "-p", "demo-project", "--skip-apply")
	require.NoError(t, err)

	_, err = e.run("clean", "--destroy=false")
	require.NoError(t, err)
	assert.NoDirExists(t, e.output)
}
