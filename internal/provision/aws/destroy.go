package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/webfleet-io/webfleet/internal/engine"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
)

// Destroy deletes everything the manifest records, in reverse creation
// order. Resources that are already gone are skipped, so a partially
// destroyed stack can be destroyed again.
func (p *Provisioner) Destroy(ctx context.Context, m *manifest.Manifest) error {
	policy := engine.DefaultRetryPolicy()

	for _, res := range m.InReverse() {
		res := res
		logging.Info("deleting resource", "type", res.Type, "name", res.Name, "id", res.ID)

		err := engine.RetryWithBackoff(ctx, policy, func() error {
			return p.deleteResource(ctx, res)
		}, retryOnDelete)
		if err != nil {
			if isNotFound(err) {
				logging.Warn("resource already gone", "type", res.Type, "id", res.ID)
				continue
			}
			return fmt.Errorf("failed to delete %s %s: %w", res.Type, res.ID, err)
		}
	}
	return nil
}

func (p *Provisioner) deleteResource(ctx context.Context, res *manifest.Resource) error {
	switch res.Type {
	case TypePipeline:
		_, err := p.pipelineClient.DeletePipeline(ctx, &codepipeline.DeletePipelineInput{
			Name: aws.String(res.ID),
		})
		return err

	case TypeDeployGroup:
		_, err := p.codedeployClient.DeleteDeploymentGroup(ctx, &codedeploy.DeleteDeploymentGroupInput{
			ApplicationName:     aws.String(res.Attrs["application"]),
			DeploymentGroupName: aws.String(res.ID),
		})
		return err

	case TypeDeployApp:
		_, err := p.codedeployClient.DeleteApplication(ctx, &codedeploy.DeleteApplicationInput{
			ApplicationName: aws.String(res.ID),
		})
		return err

	case TypeBuildProject:
		if _, err := p.codebuildClient.DeleteProject(ctx, &codebuild.DeleteProjectInput{
			Name: aws.String(res.ID),
		}); err != nil {
			return err
		}
		// The build log group is created lazily by the first build; its
		// absence is normal.
		if _, err := p.logsClient.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
			LogGroupName: aws.String("/aws/codebuild/" + res.ID),
		}); err != nil && !isNotFound(err) {
			logging.Warn("failed to delete build log group", "project", res.ID, "error", err)
		}
		return nil

	case TypeBucket:
		return p.deleteBucket(ctx, res.ID)

	case TypeInstance:
		return p.terminateInstance(ctx, res.ID)

	case TypeSecurityGroup:
		_, err := p.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
			GroupId: aws.String(res.ID),
		})
		return err

	case TypeRouteTableAssoc:
		_, err := p.ec2Client.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
			AssociationId: aws.String(res.ID),
		})
		return err

	case TypeSubnet:
		_, err := p.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{
			SubnetId: aws.String(res.ID),
		})
		return err

	case TypeRouteTable:
		_, err := p.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{
			RouteTableId: aws.String(res.ID),
		})
		return err

	case TypeInternetGateway:
		if vpcID := res.Attrs["vpcId"]; vpcID != "" {
			if _, err := p.ec2Client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
				InternetGatewayId: aws.String(res.ID),
				VpcId:             aws.String(vpcID),
			}); err != nil && !isNotFound(err) {
				return err
			}
		}
		_, err := p.ec2Client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
			InternetGatewayId: aws.String(res.ID),
		})
		return err

	case TypeVPC:
		_, err := p.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{
			VpcId: aws.String(res.ID),
		})
		return err

	case TypeInstanceProfile:
		if role := res.Attrs["role"]; role != "" {
			if _, err := p.iamClient.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
				InstanceProfileName: aws.String(res.ID),
				RoleName:            aws.String(role),
			}); err != nil && !isNotFound(err) {
				return err
			}
		}
		_, err := p.iamClient.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
			InstanceProfileName: aws.String(res.ID),
		})
		return err

	case TypeRolePolicy:
		_, err := p.iamClient.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(res.Attrs["role"]),
			PolicyName: aws.String(res.ID),
		})
		return err

	case TypePolicyAttachment:
		_, err := p.iamClient.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  aws.String(res.Attrs["role"]),
			PolicyArn: aws.String(res.ID),
		})
		return err

	case TypeRole:
		_, err := p.iamClient.DeleteRole(ctx, &iam.DeleteRoleInput{
			RoleName: aws.String(res.ID),
		})
		return err

	default:
		return fmt.Errorf("unknown resource type %q in manifest", res.Type)
	}
}

// terminateInstance terminates and waits: the security group and subnet
// behind the instance cannot be deleted until it is fully gone.
func (p *Provisioner) terminateInstance(ctx context.Context, id string) error {
	if _, err := p.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	}); err != nil {
		return err
	}
	waiter := ec2.NewInstanceTerminatedWaiter(p.ec2Client)
	return waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, 10*time.Minute)
}

// deleteBucket empties the artifact bucket before removing it; S3
// refuses to delete non-empty buckets.
func (p *Provisioner) deleteBucket(ctx context.Context, name string) error {
	paginator := s3.NewListObjectsV2Paginator(p.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if len(page.Contents) == 0 {
			break
		}
		var objects []s3types.ObjectIdentifier
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := p.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(name),
			Delete: &s3types.Delete{Objects: objects},
		}); err != nil {
			return err
		}
	}

	_, err := p.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	})
	return err
}

// retryOnDelete retries transient errors plus dependency violations,
// which show up while a just-terminated instance releases its network
// interfaces.
func retryOnDelete(err error) bool {
	if engine.IsTransientError(err) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode() == "DependencyViolation"
	}
	return false
}

func isNotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	for _, marker := range []string{"NotFound", "NoSuchEntity", "NoSuchBucket", "NoSuchKey", "DoesNotExist", "ResourceNotFound"} {
		if strings.Contains(code, marker) {
			return true
		}
	}
	return false
}
