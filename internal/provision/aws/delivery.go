package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	cdtypes "github.com/aws/aws-sdk-go-v2/service/codedeploy/types"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

// fetchSourceToken reads the pre-provisioned source access token. The
// secret is an external collaborator: webfleet never creates or rotates
// it, only requires that it exists before the pipeline does.
func (p *Provisioner) fetchSourceToken(ctx context.Context, secretName string) error {
	resp, err := p.secretsClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return fmt.Errorf("pre-provisioned secret %s is not readable: %w", secretName, err)
	}
	token := aws.ToString(resp.SecretString)
	if token == "" {
		return fmt.Errorf("pre-provisioned secret %s is empty", secretName)
	}
	p.setSourceToken(token)
	return nil
}

// createBuildProject provisions the managed build environment the
// pipeline's Build stage runs in, plus its service role. Source and
// artifacts are both pipeline-owned.
func (p *Provisioner) createBuildProject(ctx context.Context, b *stack.BuildProject, m *manifest.Manifest) error {
	roleArn, err := p.createRole(ctx, b.ServiceRole, m)
	if err != nil {
		return err
	}

	_, err = p.codebuildClient.CreateProject(ctx, &codebuild.CreateProjectInput{
		Name:        aws.String(b.Name),
		ServiceRole: aws.String(roleArn),
		Source:      &cbtypes.ProjectSource{Type: cbtypes.SourceTypeCodepipeline},
		Artifacts:   &cbtypes.ProjectArtifacts{Type: cbtypes.ArtifactsTypeCodepipeline},
		Environment: &cbtypes.ProjectEnvironment{
			Type:        cbtypes.EnvironmentTypeLinuxContainer,
			Image:       aws.String(b.Image),
			ComputeType: cbtypes.ComputeType(b.ComputeType),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create build project %s: %w", b.Name, err)
	}

	m.Record(&manifest.Resource{Type: TypeBuildProject, Name: b.Name, ID: b.Name})
	logging.Info("created build project", "name", b.Name)
	return nil
}

// createDeploymentGroup provisions the CodeDeploy application and its
// deployment group. Targets are not referenced by ID: the group carries
// the tag filters derived from the fleet declaration and the
// orchestrator matches instances by current tags at deploy time.
func (p *Provisioner) createDeploymentGroup(ctx context.Context, s *stack.Stack, m *manifest.Manifest) error {
	group := s.DeploymentGroup

	roleArn, err := p.createRole(ctx, group.ServiceRole, m)
	if err != nil {
		return err
	}

	if _, err := p.codedeployClient.CreateApplication(ctx, &codedeploy.CreateApplicationInput{
		ApplicationName: aws.String(group.Application),
		ComputePlatform: cdtypes.ComputePlatformServer,
	}); err != nil {
		return fmt.Errorf("failed to create application %s: %w", group.Application, err)
	}
	m.Record(&manifest.Resource{Type: TypeDeployApp, Name: group.Application, ID: group.Application})

	var filters []cdtypes.EC2TagFilter
	for k, v := range s.Selector() {
		filters = append(filters, cdtypes.EC2TagFilter{
			Key:   aws.String(k),
			Value: aws.String(v),
			Type:  cdtypes.EC2TagFilterTypeKeyAndValue,
		})
	}

	if _, err := p.codedeployClient.CreateDeploymentGroup(ctx, &codedeploy.CreateDeploymentGroupInput{
		ApplicationName:     aws.String(group.Application),
		DeploymentGroupName: aws.String(group.Name),
		ServiceRoleArn:      aws.String(roleArn),
		Ec2TagFilters:       filters,
	}); err != nil {
		return fmt.Errorf("failed to create deployment group %s: %w", group.Name, err)
	}
	m.Record(&manifest.Resource{
		Type:  TypeDeployGroup,
		Name:  group.Name,
		ID:    group.Name,
		Attrs: map[string]string{"application": group.Application},
	})

	logging.Info("created deployment group", "name", group.Name, "selector", fmt.Sprint(s.Selector()))
	return nil
}

// createPipeline provisions the three-stage pipeline. The source access
// token fetched earlier is injected into the source action's
// configuration at creation time only; it is never written to the
// manifest.
func (p *Provisioner) createPipeline(ctx context.Context, s *stack.Stack, m *manifest.Manifest) error {
	roleArn, err := p.createRole(ctx, s.Pipeline.ServiceRole, m)
	if err != nil {
		return err
	}

	var stages []cptypes.StageDeclaration
	for _, st := range s.Pipeline.Stages {
		var actions []cptypes.ActionDeclaration
		for _, a := range st.Actions {
			cfg := make(map[string]string, len(a.Config)+1)
			for k, v := range a.Config {
				cfg[k] = v
			}
			if a.Provider == "GitHub" {
				cfg["OAuthToken"] = p.getSourceToken()
			}

			var outputs []cptypes.OutputArtifact
			for _, o := range a.Outputs {
				outputs = append(outputs, cptypes.OutputArtifact{Name: aws.String(o)})
			}
			var inputs []cptypes.InputArtifact
			for _, in := range a.Inputs {
				inputs = append(inputs, cptypes.InputArtifact{Name: aws.String(in)})
			}

			actions = append(actions, cptypes.ActionDeclaration{
				Name: aws.String(a.Name),
				ActionTypeId: &cptypes.ActionTypeId{
					Category: cptypes.ActionCategory(a.Category),
					Owner:    cptypes.ActionOwner(a.Owner),
					Provider: aws.String(a.Provider),
					Version:  aws.String(a.Version),
				},
				RunOrder:        aws.Int32(1),
				Configuration:   cfg,
				OutputArtifacts: outputs,
				InputArtifacts:  inputs,
			})
		}
		stages = append(stages, cptypes.StageDeclaration{
			Name:    aws.String(st.Name),
			Actions: actions,
		})
	}

	_, err = p.pipelineClient.CreatePipeline(ctx, &codepipeline.CreatePipelineInput{
		Pipeline: &cptypes.PipelineDeclaration{
			Name:    aws.String(s.Pipeline.Name),
			RoleArn: aws.String(roleArn),
			ArtifactStore: &cptypes.ArtifactStore{
				Type:     cptypes.ArtifactStoreTypeS3,
				Location: aws.String(s.ArtifactBucket),
			},
			Stages: stages,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline %s: %w", s.Pipeline.Name, err)
	}

	m.Record(&manifest.Resource{Type: TypePipeline, Name: s.Pipeline.Name, ID: s.Pipeline.Name})
	logging.Info("created pipeline", "name", s.Pipeline.Name, "stages", len(stages))
	return nil
}
