package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

// createSecurityGroup provisions the stack's security group in its VPC
// and authorizes the declared ingress rules. Egress stays at the AWS
// default (all traffic allowed) when OpenEgress is set.
func (p *Provisioner) createSecurityGroup(ctx context.Context, s *stack.Stack, m *manifest.Manifest) error {
	sg := s.SecurityGroup

	vpc := m.Lookup(TypeVPC, s.Network.Name)
	if vpc == nil {
		return fmt.Errorf("VPC %s not found in manifest", s.Network.Name)
	}

	resp, err := p.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(sg.Name),
		Description:       aws.String(sg.Description),
		VpcId:             aws.String(vpc.ID),
		TagSpecifications: nameTags(types.ResourceTypeSecurityGroup, sg.Name),
	})
	if err != nil {
		return fmt.Errorf("failed to create security group: %w", err)
	}
	groupID := aws.ToString(resp.GroupId)
	m.Record(&manifest.Resource{Type: TypeSecurityGroup, Name: sg.Name, ID: groupID})

	var perms []types.IpPermission
	for _, rule := range sg.Ingress {
		perms = append(perms, types.IpPermission{
			IpProtocol: aws.String(rule.Protocol),
			FromPort:   aws.Int32(int32(rule.FromPort)),
			ToPort:     aws.Int32(int32(rule.ToPort)),
			IpRanges:   []types.IpRange{{CidrIp: aws.String(rule.Source)}},
		})
	}
	if len(perms) > 0 {
		if _, err := p.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: perms,
		}); err != nil {
			return fmt.Errorf("failed to authorize ingress: %w", err)
		}
	}

	if !sg.OpenEgress {
		logging.Warn("egress restriction requested but not declared; AWS default (allow all) applies", "group", sg.Name)
	}

	logging.Info("created security group", "id", groupID, "ingress_rules", len(sg.Ingress))
	return nil
}
