package aws

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webfleet-io/webfleet/internal/config"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

func testStack(t *testing.T) *stack.Stack {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Owner = "acme"
	cfg.Source.Repo = "shop"
	s := stack.Definition(cfg, &stack.BootstrapScript{Path: "x", Content: "#!/bin/bash\n"})
	require.NoError(t, stack.Validate(s))
	return s
}

func TestCreateSteps_Shape(t *testing.T) {
	s := testStack(t)
	p := &Provisioner{region: s.Region}
	steps := p.CreateSteps(s, manifest.New(s.Name, s.Region))

	byName := map[string][]string{}
	for _, step := range steps {
		require.NotEmpty(t, step.Name)
		require.NotNil(t, step.Run)
		_, dup := byName[step.Name]
		require.False(t, dup, "duplicate step %s", step.Name)
		byName[step.Name] = step.DependsOn
	}

	// One step per fleet member, sharing deps and nothing else, so the
	// engine launches them concurrently.
	assert.Contains(t, byName, "instance-1")
	assert.Contains(t, byName, "instance-2")
	assert.NotContains(t, byName, "instance-3")
	assert.ElementsMatch(t, byName["instance-1"], byName["instance-2"])
	assert.Contains(t, byName["instance-1"], "security-group")
	assert.Contains(t, byName["instance-1"], "instance-role")
	assert.Contains(t, byName["instance-1"], "resolve-image")

	// The pipeline waits for everything the Deploy and Build stages need.
	assert.ElementsMatch(t, []string{"artifact-bucket", "source-token", "build-project", "deployment-group"}, byName["pipeline"])

	// Every declared dependency exists.
	for name, deps := range byName {
		for _, dep := range deps {
			assert.Contains(t, byName, dep, "step %s depends on unknown %s", name, dep)
		}
	}
}

func TestCreateSteps_CountFollowsFleet(t *testing.T) {
	s := testStack(t)
	s.Fleet.Count = 4
	p := &Provisioner{region: s.Region}

	steps := p.CreateSteps(s, manifest.New(s.Name, s.Region))

	var instances int
	for _, step := range steps {
		if strings.HasPrefix(step.Name, "instance-") {
			instances++
		}
	}
	assert.Equal(t, 4, instances)
}
