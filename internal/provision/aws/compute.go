package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

// resolveImage looks up the current stable machine image through the
// platform's public SSM parameter, so the declaration names a moving
// alias rather than a frozen AMI ID.
func (p *Provisioner) resolveImage(ctx context.Context, fleet *stack.Fleet) error {
	resp, err := p.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(fleet.ImageParameter),
	})
	if err != nil {
		return fmt.Errorf("failed to resolve image parameter %s: %w", fleet.ImageParameter, err)
	}
	imageID := aws.ToString(resp.Parameter.Value)
	p.setImageID(imageID)
	logging.Info("resolved machine image", "parameter", fleet.ImageParameter, "ami", imageID)
	return nil
}

// launchInstance runs one fleet member, waits until it is running and
// records its public IP. Instances are spread across the subnets round
// robin.
func (p *Provisioner) launchInstance(ctx context.Context, s *stack.Stack, idx int, m *manifest.Manifest) error {
	fleet := s.Fleet
	name := fmt.Sprintf("%s-%d", fleet.Name, idx+1)

	subnetDecl := s.Network.Subnets[idx%len(s.Network.Subnets)]
	subnet := m.Lookup(TypeSubnet, subnetDecl.Name)
	if subnet == nil {
		return fmt.Errorf("subnet %s not found in manifest", subnetDecl.Name)
	}
	group := m.Lookup(TypeSecurityGroup, s.SecurityGroup.Name)
	if group == nil {
		return fmt.Errorf("security group %s not found in manifest", s.SecurityGroup.Name)
	}

	tags := []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}
	for k, v := range fleet.Tags {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	resp, err := p.ec2Client.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:          aws.String(p.getImageID()),
		InstanceType:     types.InstanceType(fleet.InstanceType),
		MinCount:         aws.Int32(1),
		MaxCount:         aws.Int32(1),
		SubnetId:         aws.String(subnet.ID),
		SecurityGroupIds: []string{group.ID},
		UserData:         aws.String(base64.StdEncoding.EncodeToString([]byte(fleet.UserData))),
		IamInstanceProfile: &types.IamInstanceProfileSpecification{
			Name: aws.String(s.InstanceRole.Name + "-profile"),
		},
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags:         tags,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to run instance %s: %w", name, err)
	}
	if len(resp.Instances) == 0 {
		return fmt.Errorf("no instance created for %s", name)
	}
	instanceID := aws.ToString(resp.Instances[0].InstanceId)

	waiter := ec2.NewInstanceRunningWaiter(p.ec2Client)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, 5*time.Minute); err != nil {
		return fmt.Errorf("instance %s did not reach running state: %w", name, err)
	}

	desc, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("failed to describe instance %s: %w", name, err)
	}
	var publicIP string
	if len(desc.Reservations) > 0 && len(desc.Reservations[0].Instances) > 0 {
		publicIP = aws.ToString(desc.Reservations[0].Instances[0].PublicIpAddress)
	}
	if publicIP == "" {
		return fmt.Errorf("instance %s has no public IP", name)
	}

	m.Record(&manifest.Resource{
		Type:  TypeInstance,
		Name:  name,
		ID:    instanceID,
		Attrs: map[string]string{"publicIp": publicIP, "subnet": subnetDecl.Name},
	})
	logging.Info("launched instance", "name", name, "id", instanceID, "public_ip", publicIP)
	return nil
}
