package stack

import (
	"fmt"

	"github.com/webfleet-io/webfleet/internal/config"
)

// Artifact names wiring the pipeline stages together.
const (
	SourceArtifact = "SourceOutput"
	BuildArtifact  = "BuildOutput"
)

// Stage names, in the only order the pipeline runs them.
const (
	StageSource = "Source"
	StageBuild  = "Build"
	StageDeploy = "Deploy"
)

// Managed policies attached to the instance role: operational access
// for the managed-instance agent, and what the deployment agent needs
// to pull and apply bundles.
const (
	policyManagedInstanceCore = "arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"
	policyDeployAgentAccess   = "arn:aws:iam::aws:policy/service-role/AmazonEC2RoleforAWSCodeDeploy"
	policyCodeDeployRole      = "arn:aws:iam::aws:policy/service-role/AWSCodeDeployRole"
)

// Service principals allowed to assume the stack's roles.
const (
	principalEC2          = "ec2.amazonaws.com"
	principalCodeBuild    = "codebuild.amazonaws.com"
	principalCodeDeploy   = "codedeploy.amazonaws.com"
	principalCodePipeline = "codepipeline.amazonaws.com"
)

// Demo posture: the pipeline and build roles get broad inline policies
// rather than least-privilege documents.
const pipelinePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Action": ["s3:GetObject", "s3:GetObjectVersion", "s3:PutObject", "s3:GetBucketVersioning"], "Resource": "*"},
    {"Effect": "Allow", "Action": ["codebuild:StartBuild", "codebuild:BatchGetBuilds"], "Resource": "*"},
    {"Effect": "Allow", "Action": ["codedeploy:CreateDeployment", "codedeploy:GetApplication", "codedeploy:GetApplicationRevision", "codedeploy:GetDeployment", "codedeploy:GetDeploymentConfig", "codedeploy:RegisterApplicationRevision"], "Resource": "*"}
  ]
}`

const buildPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Action": ["logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"], "Resource": "*"},
    {"Effect": "Allow", "Action": ["s3:GetObject", "s3:GetObjectVersion", "s3:PutObject"], "Resource": "*"}
  ]
}`

// Definition builds the fixed topology from configuration and the
// already-loaded bootstrap script: one network with three public
// subnets, one permissive security group, one instance role, a fleet of
// identical instances, and the Source/Build/Deploy pipeline targeting
// the fleet by tag.
func Definition(cfg *config.Config, script *BootstrapScript) *Stack {
	app := cfg.AppName

	network := &Network{
		Name: app + "-vpc",
		CIDR: cfg.Network.CIDR,
	}
	for i, cidr := range cfg.Network.SubnetCIDRs {
		network.Subnets = append(network.Subnets, Subnet{
			Name:   fmt.Sprintf("%s-public-%d", app, i+1),
			CIDR:   cidr,
			Zone:   cfg.Network.Zones[i],
			Public: true,
		})
	}

	sg := &SecurityGroup{
		Name:        app + "-sg",
		Description: "HTTP and SSH access for " + app,
		Ingress: []Rule{
			{Protocol: "tcp", FromPort: 80, ToPort: 80, Source: "0.0.0.0/0"},
			{Protocol: "tcp", FromPort: 22, ToPort: 22, Source: "0.0.0.0/0"},
		},
		OpenEgress: true,
	}

	instanceRole := &Role{
		Name:            app + "-instance-role",
		TrustPrincipal:  principalEC2,
		ManagedPolicies: []string{policyManagedInstanceCore, policyDeployAgentAccess},
	}

	fleet := &Fleet{
		Name:           app + "-fleet",
		Count:          cfg.Instance.Count,
		InstanceType:   cfg.Instance.Type,
		ImageParameter: cfg.Instance.ImageParameter,
		Tags: map[string]string{
			TagApplicationName: app,
			TagStage:           cfg.Stage,
		},
		UserData: script.Content,
	}

	build := &BuildProject{
		Name:        app + "-build",
		Image:       "aws/codebuild/amazonlinux2-x86_64-standard:5.0",
		ComputeType: "BUILD_GENERAL1_SMALL",
		ServiceRole: &Role{
			Name:           app + "-build-role",
			TrustPrincipal: principalCodeBuild,
			InlinePolicy:   buildPolicy,
		},
	}

	group := &DeploymentGroup{
		Name:        app + "-" + cfg.Stage,
		Application: app,
		Fleet:       fleet.Name,
		ServiceRole: &Role{
			Name:            app + "-deploy-role",
			TrustPrincipal:  principalCodeDeploy,
			ManagedPolicies: []string{policyCodeDeployRole},
		},
	}

	pipeline := &Pipeline{
		Name: app + "-pipeline",
		ServiceRole: &Role{
			Name:           app + "-pipeline-role",
			TrustPrincipal: principalCodePipeline,
			InlinePolicy:   pipelinePolicy,
		},
		Stages: []Stage{
			{
				Name: StageSource,
				Actions: []Action{{
					Name:     "FetchSource",
					Category: "Source",
					Owner:    "ThirdParty",
					Provider: "GitHub",
					Version:  "1",
					Config: map[string]string{
						"Owner":  cfg.Source.Owner,
						"Repo":   cfg.Source.Repo,
						"Branch": cfg.Source.Branch,
						// Webhook-driven; polling stays off.
						"PollForSourceChanges": "false",
					},
					Outputs: []string{SourceArtifact},
				}},
			},
			{
				Name: StageBuild,
				Actions: []Action{{
					Name:     "BuildApplication",
					Category: "Build",
					Owner:    "AWS",
					Provider: "CodeBuild",
					Version:  "1",
					Config:   map[string]string{"ProjectName": build.Name},
					Inputs:   []string{SourceArtifact},
					Outputs:  []string{BuildArtifact},
				}},
			},
			{
				Name: StageDeploy,
				Actions: []Action{{
					Name:     "DeployToFleet",
					Category: "Deploy",
					Owner:    "AWS",
					Provider: "CodeDeploy",
					Version:  "1",
					Config: map[string]string{
						"ApplicationName":     group.Application,
						"DeploymentGroupName": group.Name,
					},
					Inputs: []string{BuildArtifact},
				}},
			},
		},
	}

	return &Stack{
		Name:              app,
		Region:            cfg.Region,
		Network:           network,
		SecurityGroup:     sg,
		InstanceRole:      instanceRole,
		Fleet:             fleet,
		ArtifactBucket:    fmt.Sprintf("%s-%s-artifacts-%s", app, cfg.Stage, cfg.Region),
		SourceTokenSecret: cfg.Source.TokenSecret,
		Build:             build,
		Pipeline:          pipeline,
		DeploymentGroup:   group,
	}
}
