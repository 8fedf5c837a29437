package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/webfleet-io/webfleet/internal/logging"
	"github.com/webfleet-io/webfleet/internal/manifest"
)

// createArtifactBucket provisions the S3 bucket the pipeline engine
// stores stage artifacts in. Re-running against a bucket we already own
// is tolerated so a failed run can be retried.
func (p *Provisioner) createArtifactBucket(ctx context.Context, name string, m *manifest.Manifest) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint.
	if p.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.region),
		}
	}

	if _, err := p.s3Client.CreateBucket(ctx, input); err != nil {
		var ae smithy.APIError
		if !errors.As(err, &ae) || ae.ErrorCode() != "BucketAlreadyOwnedByYou" {
			return fmt.Errorf("failed to create artifact bucket %s: %w", name, err)
		}
	}

	m.Record(&manifest.Resource{Type: TypeBucket, Name: name, ID: name})
	logging.Info("created artifact bucket", "bucket", name)
	return nil
}
