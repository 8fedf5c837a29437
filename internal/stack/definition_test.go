package stack

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webfleet-io/webfleet/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Source.Owner = "example-org"
	cfg.Source.Repo = "java-web"
	return cfg
}

func testScript() *BootstrapScript {
	return &BootstrapScript{Path: "scripts/configure.sh", Content: "#!/bin/bash\necho ok\n"}
}

func TestDefinition_Valid(t *testing.T) {
	s := Definition(testConfig(), testScript())
	require.NoError(t, Validate(s))
}

func TestDefinition_Network(t *testing.T) {
	s := Definition(testConfig(), testScript())

	require.NotNil(t, s.Network)
	assert.Equal(t, "10.0.0.0/16", s.Network.CIDR)
	require.Len(t, s.Network.Subnets, 3)

	zones := map[string]bool{}
	for _, sub := range s.Network.Subnets {
		assert.True(t, sub.Public)
		assert.False(t, zones[sub.Zone], "zone %s used twice", sub.Zone)
		zones[sub.Zone] = true
	}
}

func TestDefinition_SecurityGroupRules(t *testing.T) {
	s := Definition(testConfig(), testScript())

	require.NotNil(t, s.SecurityGroup)
	require.Len(t, s.SecurityGroup.Ingress, 2)

	ports := map[int]bool{}
	for _, r := range s.SecurityGroup.Ingress {
		assert.Equal(t, "tcp", r.Protocol)
		assert.Equal(t, r.FromPort, r.ToPort)
		assert.Equal(t, "0.0.0.0/0", r.Source)
		ports[r.FromPort] = true
	}
	assert.True(t, ports[80], "missing HTTP rule")
	assert.True(t, ports[22], "missing SSH rule")
}

func TestDefinition_FleetTags(t *testing.T) {
	s := Definition(testConfig(), testScript())

	require.NotNil(t, s.Fleet)
	assert.Equal(t, 2, s.Fleet.Count)
	assert.Equal(t, map[string]string{
		TagApplicationName: "java-web",
		TagStage:           "prod",
	}, s.Fleet.Tags)
	assert.Equal(t, "#!/bin/bash\necho ok\n", s.Fleet.UserData)
}

func TestDefinition_SelectorMatchesFleetTags(t *testing.T) {
	s := Definition(testConfig(), testScript())

	sel := s.Selector()
	require.NotNil(t, sel)
	assert.Equal(t, s.Fleet.Tags, sel)

	// The selector is a copy, not an alias of the fleet's map.
	sel[TagStage] = "staging"
	assert.Equal(t, "prod", s.Fleet.Tags[TagStage])
}

func TestSelector_UnknownFleet(t *testing.T) {
	s := Definition(testConfig(), testScript())
	s.DeploymentGroup.Fleet = "someone-elses-fleet"
	assert.Nil(t, s.Selector())
}

func TestDefinition_InstanceRolePolicies(t *testing.T) {
	s := Definition(testConfig(), testScript())

	require.NotNil(t, s.InstanceRole)
	assert.Equal(t, "ec2.amazonaws.com", s.InstanceRole.TrustPrincipal)
	assert.Equal(t, []string{
		"arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore",
		"arn:aws:iam::aws:policy/service-role/AmazonEC2RoleforAWSCodeDeploy",
	}, s.InstanceRole.ManagedPolicies)
}

func TestDefinition_PipelineWiring(t *testing.T) {
	s := Definition(testConfig(), testScript())

	require.NotNil(t, s.Pipeline)
	require.Len(t, s.Pipeline.Stages, 3)
	assert.Equal(t, StageSource, s.Pipeline.Stages[0].Name)
	assert.Equal(t, StageBuild, s.Pipeline.Stages[1].Name)
	assert.Equal(t, StageDeploy, s.Pipeline.Stages[2].Name)

	source := s.Pipeline.Stages[0].Actions[0]
	assert.Equal(t, []string{SourceArtifact}, source.Outputs)
	assert.Equal(t, "example-org", source.Config["Owner"])
	assert.Equal(t, "false", source.Config["PollForSourceChanges"])
	assert.NotContains(t, source.Config, "OAuthToken", "token must not enter the declaration")

	build := s.Pipeline.Stages[1].Actions[0]
	assert.Equal(t, []string{SourceArtifact}, build.Inputs)
	assert.Equal(t, []string{BuildArtifact}, build.Outputs)

	deploy := s.Pipeline.Stages[2].Actions[0]
	assert.Equal(t, []string{BuildArtifact}, deploy.Inputs)
	assert.Equal(t, s.DeploymentGroup.Name, deploy.Config["DeploymentGroupName"])
}

func TestDefinition_ArtifactBucketName(t *testing.T) {
	s := Definition(testConfig(), testScript())

	assert.Equal(t, "java-web-prod-artifacts-us-east-1", s.ArtifactBucket)
	// S3 bucket naming rules.
	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`), s.ArtifactBucket)
}

func TestDefinition_SecretNameOnly(t *testing.T) {
	s := Definition(testConfig(), testScript())
	assert.Equal(t, "github-token", s.SourceTokenSecret)
}
