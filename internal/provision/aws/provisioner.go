// Package aws provisions the webfleet stack against AWS using the v2
// SDK. Creation is one-shot: each concern creates its resources and
// records them in the manifest; destruction walks the manifest in
// reverse.
package aws

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Manifest resource types.
const (
	TypeVPC              = "ec2:vpc"
	TypeSubnet           = "ec2:subnet"
	TypeInternetGateway  = "ec2:internet-gateway"
	TypeRouteTable       = "ec2:route-table"
	TypeRouteTableAssoc  = "ec2:route-table-association"
	TypeSecurityGroup    = "ec2:security-group"
	TypeInstance         = "ec2:instance"
	TypeRole             = "iam:role"
	TypeRolePolicy       = "iam:role-policy"
	TypePolicyAttachment = "iam:policy-attachment"
	TypeInstanceProfile  = "iam:instance-profile"
	TypeBucket           = "s3:bucket"
	TypeBuildProject     = "codebuild:project"
	TypeDeployApp        = "codedeploy:application"
	TypeDeployGroup      = "codedeploy:deployment-group"
	TypePipeline         = "codepipeline:pipeline"
)

// Provisioner owns the per-service clients for one region.
type Provisioner struct {
	region string

	ec2Client        *ec2.Client
	iamClient        *iam.Client
	s3Client         *s3.Client
	ssmClient        *ssm.Client
	secretsClient    *secretsmanager.Client
	codebuildClient  *codebuild.Client
	codedeployClient *codedeploy.Client
	pipelineClient   *codepipeline.Client
	logsClient       *cloudwatchlogs.Client

	mu          sync.Mutex
	imageID     string
	sourceToken string
}

// New loads the default AWS configuration for the region and builds the
// service clients.
func New(ctx context.Context, region string) (*Provisioner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Provisioner{
		region:           region,
		ec2Client:        ec2.NewFromConfig(cfg),
		iamClient:        iam.NewFromConfig(cfg),
		s3Client:         s3.NewFromConfig(cfg),
		ssmClient:        ssm.NewFromConfig(cfg),
		secretsClient:    secretsmanager.NewFromConfig(cfg),
		codebuildClient:  codebuild.NewFromConfig(cfg),
		codedeployClient: codedeploy.NewFromConfig(cfg),
		pipelineClient:   codepipeline.NewFromConfig(cfg),
		logsClient:       cloudwatchlogs.NewFromConfig(cfg),
	}, nil
}

func (p *Provisioner) setImageID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imageID = id
}

func (p *Provisioner) getImageID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imageID
}

func (p *Provisioner) setSourceToken(tok string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sourceToken = tok
}

func (p *Provisioner) getSourceToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sourceToken
}
