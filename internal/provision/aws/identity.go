package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/stack"
)

const trustPolicyTemplate = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Principal": {"Service": "%s"}, "Action": "sts:AssumeRole"}
  ]
}`

// createRole provisions an IAM role with its managed policy
// attachments and optional inline policy, recording each piece so
// destroy can unwind them before the role itself.
func (p *Provisioner) createRole(ctx context.Context, role *stack.Role, m *manifest.Manifest) (string, error) {
	trust := fmt.Sprintf(trustPolicyTemplate, role.TrustPrincipal)

	resp, err := p.iamClient.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(role.Name),
		AssumeRolePolicyDocument: aws.String(trust),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create role %s: %w", role.Name, err)
	}
	arn := aws.ToString(resp.Role.Arn)
	m.Record(&manifest.Resource{Type: TypeRole, Name: role.Name, ID: role.Name})

	for _, policyArn := range role.ManagedPolicies {
		if _, err := p.iamClient.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(role.Name),
			PolicyArn: aws.String(policyArn),
		}); err != nil {
			return "", fmt.Errorf("failed to attach policy %s to role %s: %w", policyArn, role.Name, err)
		}
		m.Record(&manifest.Resource{
			Type:  TypePolicyAttachment,
			Name:  role.Name,
			ID:    policyArn,
			Attrs: map[string]string{"role": role.Name},
		})
	}

	if role.InlinePolicy != "" {
		policyName := role.Name + "-policy"
		if _, err := p.iamClient.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
			RoleName:       aws.String(role.Name),
			PolicyName:     aws.String(policyName),
			PolicyDocument: aws.String(role.InlinePolicy),
		}); err != nil {
			return "", fmt.Errorf("failed to put inline policy on role %s: %w", role.Name, err)
		}
		m.Record(&manifest.Resource{
			Type:  TypeRolePolicy,
			Name:  policyName,
			ID:    policyName,
			Attrs: map[string]string{"role": role.Name},
		})
	}

	logging.Info("created role", "name", role.Name, "principal", role.TrustPrincipal)
	return arn, nil
}

// createInstanceRole provisions the fleet's execution role and wraps it
// in an instance profile, which is what EC2 actually attaches.
func (p *Provisioner) createInstanceRole(ctx context.Context, role *stack.Role, m *manifest.Manifest) error {
	if _, err := p.createRole(ctx, role, m); err != nil {
		return err
	}

	profileName := role.Name + "-profile"
	if _, err := p.iamClient.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	}); err != nil {
		return fmt.Errorf("failed to create instance profile: %w", err)
	}
	if _, err := p.iamClient.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
		RoleName:            aws.String(role.Name),
	}); err != nil {
		return fmt.Errorf("failed to add role to instance profile: %w", err)
	}
	m.Record(&manifest.Resource{
		Type:  TypeInstanceProfile,
		Name:  profileName,
		ID:    profileName,
		Attrs: map[string]string{"role": role.Name},
	})

	return nil
}
