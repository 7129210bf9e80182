// server/handlers.go
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"
	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
	"github.com/rahulwagh/policymig/policyfile"
	"github.com/rahulwagh/policymig/terraform"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// Fragment is the rendered Terraform of one policy.
type Fragment struct {
	Policy string        `json:"policy"`
	Target policy.Target `json:"target"`
	HCL    string        `json:"hcl"`
}

var contentTypes = map[policyfile.Format]string{
	policyfile.FormatJSON: "application/json",
	policyfile.FormatYAML: "application/yaml",
	policyfile.FormatHCL:  "text/plain; charset=utf-8",
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleInstances lists the inventory, optionally for one target. With q
// the results are ranked by fuzzy match against the instance title.
func (s *Server) handleInstances(c *gin.Context) {
	target := policy.Target(c.Query("target"))
	if target != "" && !slices.Contains(policy.Targets, target) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown target %q", target)})
		return
	}

	instances, err := s.store.FetchInstances(target)
	if err != nil {
		log.Errorf("Failed to load inventory: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load inventory, run discover first"})
		return
	}

	query := c.Query("q")
	if query == "" {
		if instances == nil {
			instances = []fetcher.Instance{}
		}
		c.JSON(http.StatusOK, instances)
		return
	}

	titles := make([]string, len(instances))
	for i, inst := range instances {
		titles[i] = inst.Title()
	}
	ranks := fuzzy.RankFindFold(query, titles)
	sort.Sort(ranks)

	results := make([]fetcher.Instance, 0, len(ranks))
	for _, rank := range ranks {
		results = append(results, instances[rank.OriginalIndex])
	}
	c.JSON(http.StatusOK, results)
}

// readPolicies parses the request body in the format named by ?format=
// (json by default). On failure the response has been written.
func readPolicies(c *gin.Context) ([]*policy.Policy, policyfile.Format, bool) {
	format, err := policyfile.ParseFormat(c.DefaultQuery("format", string(policyfile.FormatJSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, "", false
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return nil, "", false
	}
	policies, err := policyfile.Parse(body, format)
	if err != nil {
		writePolicyError(c, err)
		return nil, "", false
	}
	return policies, format, true
}

// writePolicyError maps validation failures to 422 and malformed input
// to 400.
func writePolicyError(c *gin.Context, err error) {
	var verr *policy.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Kind:  verr.Kind.Error(),
			Field: verr.Field,
			Value: verr.Value,
		})
		return
	}
	if errors.Is(err, policyfile.ErrMalformedInput) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: policyfile.ErrMalformedInput.Error()})
		return
	}
	log.Errorf("Policy request failed: %v", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func (s *Server) handleValidate(c *gin.Context) {
	policies, _, ok := readPolicies(c)
	if !ok {
		return
	}
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Name()
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "policies": names})
}

// handleTranslate answers in the request's format.
func (s *Server) handleTranslate(c *gin.Context) {
	target := policy.Target(c.Query("target"))
	if !slices.Contains(policy.Targets, target) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("target must be one of %v", policy.Targets)})
		return
	}
	policies, format, ok := readPolicies(c)
	if !ok {
		return
	}

	translated := make([]*policy.Policy, 0, len(policies))
	for _, p := range policies {
		t, err := policy.Translate(p, target, c.Query("region"), c.Query("network"))
		if err != nil {
			writePolicyError(c, fmt.Errorf("failed to translate policy %q: %w", p.Name(), err))
			return
		}
		translated = append(translated, t)
	}

	out, err := policyfile.Serialize(translated, format)
	if err != nil {
		writePolicyError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypes[format], out)
}

// handleRender resolves tags against the inventory and returns the
// Terraform each policy would produce, without touching any file.
func (s *Server) handleRender(c *gin.Context) {
	policies, _, ok := readPolicies(c)
	if !ok {
		return
	}

	fragments := make([]Fragment, 0, len(policies))
	for _, p := range policies {
		ep, err := s.resolver.ResolvePolicy(p)
		if err != nil {
			log.Errorf("Failed to resolve policy %s: %v", p.Name(), err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		out, err := terraform.Render(p, ep, s.namer, s.now())
		if err != nil {
			writePolicyError(c, err)
			return
		}
		fragments = append(fragments, Fragment{Policy: p.Name(), Target: p.Target(), HCL: string(out)})
	}
	c.JSON(http.StatusOK, gin.H{"fragments": fragments})
}
