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

// createNetwork provisions the VPC, its subnets and the internet
// routing plumbing that makes the public subnets internet-routable:
// an internet gateway, a route table with a default route, and one
// association per public subnet.
func (p *Provisioner) createNetwork(ctx context.Context, net *stack.Network, m *manifest.Manifest) error {
	vpcResp, err := p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(net.CIDR),
		TagSpecifications: nameTags(types.ResourceTypeVpc, net.Name),
	})
	if err != nil {
		return fmt.Errorf("failed to create VPC: %w", err)
	}
	vpcID := aws.ToString(vpcResp.Vpc.VpcId)
	m.Record(&manifest.Resource{Type: TypeVPC, Name: net.Name, ID: vpcID})
	logging.Info("created VPC", "id", vpcID, "cidr", net.CIDR)

	// Instances need DNS hostnames for the deployment agent to register.
	_, err = p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
		VpcId:              aws.String(vpcID),
		EnableDnsHostnames: &types.AttributeBooleanValue{Value: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to enable DNS hostnames: %w", err)
	}

	igwResp, err := p.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: nameTags(types.ResourceTypeInternetGateway, net.Name+"-igw"),
	})
	if err != nil {
		return fmt.Errorf("failed to create internet gateway: %w", err)
	}
	igwID := aws.ToString(igwResp.InternetGateway.InternetGatewayId)
	m.Record(&manifest.Resource{
		Type:  TypeInternetGateway,
		Name:  net.Name + "-igw",
		ID:    igwID,
		Attrs: map[string]string{"vpcId": vpcID},
	})

	if _, err := p.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	}); err != nil {
		return fmt.Errorf("failed to attach internet gateway: %w", err)
	}

	rtResp, err := p.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             aws.String(vpcID),
		TagSpecifications: nameTags(types.ResourceTypeRouteTable, net.Name+"-public"),
	})
	if err != nil {
		return fmt.Errorf("failed to create route table: %w", err)
	}
	rtID := aws.ToString(rtResp.RouteTable.RouteTableId)
	m.Record(&manifest.Resource{Type: TypeRouteTable, Name: net.Name + "-public", ID: rtID})

	if _, err := p.ec2Client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(rtID),
		DestinationCidrBlock: aws.String("0.0.0.0/0"),
		GatewayId:            aws.String(igwID),
	}); err != nil {
		return fmt.Errorf("failed to create default route: %w", err)
	}

	for _, sub := range net.Subnets {
		subResp, err := p.ec2Client.CreateSubnet(ctx, &ec2.CreateSubnetInput{
			VpcId:             aws.String(vpcID),
			CidrBlock:         aws.String(sub.CIDR),
			AvailabilityZone:  aws.String(p.region + sub.Zone),
			TagSpecifications: nameTags(types.ResourceTypeSubnet, sub.Name),
		})
		if err != nil {
			return fmt.Errorf("failed to create subnet %s: %w", sub.Name, err)
		}
		subID := aws.ToString(subResp.Subnet.SubnetId)
		m.Record(&manifest.Resource{Type: TypeSubnet, Name: sub.Name, ID: subID})
		logging.Info("created subnet", "id", subID, "cidr", sub.CIDR, "zone", p.region+sub.Zone)

		if !sub.Public {
			continue
		}

		if _, err := p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(subID),
			MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return fmt.Errorf("failed to enable public IPs on subnet %s: %w", sub.Name, err)
		}

		assocResp, err := p.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
			RouteTableId: aws.String(rtID),
			SubnetId:     aws.String(subID),
		})
		if err != nil {
			return fmt.Errorf("failed to associate route table with subnet %s: %w", sub.Name, err)
		}
		m.Record(&manifest.Resource{
			Type: TypeRouteTableAssoc,
			Name: sub.Name,
			ID:   aws.ToString(assocResp.AssociationId),
		})
	}

	return nil
}

func nameTags(rt types.ResourceType, name string) []types.TagSpecification {
	return []types.TagSpecification{{
		ResourceType: rt,
		Tags:         []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}}
}
