package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned by Read when no manifest has been written.
var ErrNotFound = errors.New("manifest not found")

// Store persists the manifest between up and down.
type Store interface {
	Read(ctx context.Context) (*Manifest, error)
	Write(ctx context.Context, m *Manifest) error
	Delete(ctx context.Context) error
}

// NewStore picks a backend from the location: s3://bucket/key for S3,
// anything else is a local file path.
func NewStore(location, region string) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		rest := strings.TrimPrefix(location, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid manifest location %q, want s3://bucket/key", location)
		}
		return &s3Store{bucket: bucket, key: key, region: region}, nil
	}
	return &fileStore{path: location}, nil
}

type fileStore struct {
	path string
}

func (s *fileStore) Read(_ context.Context) (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", s.path, err)
	}
	return decode(data)
}

func (s *fileStore) Write(_ context.Context, m *Manifest) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove manifest %s: %w", s.path, err)
	}
	return nil
}

// s3Store keeps the manifest as a single S3 object so a team can share
// one record of the stack.
type s3Store struct {
	bucket string
	key    string
	region string

	client *s3.Client
}

func (s *s3Store) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	return nil
}

func (s *s3Store) Read(ctx context.Context) (*Manifest, error) {
	if err := s.ensureClient(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && (ae.ErrorCode() == "NoSuchKey" || ae.ErrorCode() == "NoSuchBucket") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read manifest s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read manifest body: %w", err)
	}
	return decode(buf.Bytes())
}

func (s *s3Store) Write(ctx context.Context, m *Manifest) error {
	if err := s.ensureClient(ctx); err != nil {
		return err
	}
	data, err := encode(m)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write manifest s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

func (s *s3Store) Delete(ctx context.Context) error {
	if err := s.ensureClient(ctx); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete manifest s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

func encode(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

func decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if m.Outputs == nil {
		m.Outputs = map[string]string{}
	}
	return &m, nil
}
