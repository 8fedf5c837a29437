package aws

import (
	"context"
	"fmt"

	"github.com/webfleet-io/webfleet/internal/engine"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

// CreateSteps builds the provisioning step graph for a stack. The two
// fleet instances share the same dependencies and no ordering relation,
// so the engine launches them concurrently.
func (p *Provisioner) CreateSteps(s *stack.Stack, m *manifest.Manifest) []*engine.Step {
	steps := []*engine.Step{
		{
			Name: "resolve-image",
			Run:  func(ctx context.Context) error { return p.resolveImage(ctx, s.Fleet) },
		},
		{
			Name: "network",
			Run:  func(ctx context.Context) error { return p.createNetwork(ctx, s.Network, m) },
		},
		{
			Name:      "security-group",
			DependsOn: []string{"network"},
			Run:       func(ctx context.Context) error { return p.createSecurityGroup(ctx, s, m) },
		},
		{
			Name: "instance-role",
			Run:  func(ctx context.Context) error { return p.createInstanceRole(ctx, s.InstanceRole, m) },
		},
		{
			Name: "artifact-bucket",
			Run:  func(ctx context.Context) error { return p.createArtifactBucket(ctx, s.ArtifactBucket, m) },
		},
		{
			Name: "source-token",
			Run:  func(ctx context.Context) error { return p.fetchSourceToken(ctx, s.SourceTokenSecret) },
		},
		{
			Name: "build-project",
			Run:  func(ctx context.Context) error { return p.createBuildProject(ctx, s.Build, m) },
		},
		{
			Name: "deployment-group",
			Run:  func(ctx context.Context) error { return p.createDeploymentGroup(ctx, s, m) },
		},
	}

	instanceDeps := []string{"resolve-image", "network", "security-group", "instance-role"}
	for i := 0; i < s.Fleet.Count; i++ {
		idx := i
		steps = append(steps, &engine.Step{
			Name:      fmt.Sprintf("instance-%d", idx+1),
			DependsOn: instanceDeps,
			Run:       func(ctx context.Context) error { return p.launchInstance(ctx, s, idx, m) },
		})
	}

	steps = append(steps, &engine.Step{
		Name:      "pipeline",
		DependsOn: []string{"artifact-bucket", "source-token", "build-project", "deployment-group"},
		Run:       func(ctx context.Context) error { return p.createPipeline(ctx, s, m) },
	})

	return steps
}
