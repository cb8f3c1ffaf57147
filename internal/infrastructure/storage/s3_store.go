package storage

import (
	"context"
	"fmt"

	"liveclass/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Store removes retention tags from recording objects. A lifecycle rule
// on the bucket deletes objects still tagged as temporary; stripping the tag
// is what makes a recording permanent. Implements ports.ObjectStore.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *zap.SugaredLogger
}

func NewS3Store(client *s3.Client, bucket string, logger *zap.SugaredLogger) *S3Store {
	return &S3Store{client: client, bucket: bucket, logger: logger}
}

// NewS3ClientFromEnv builds an S3 client from the default AWS config chain.
func NewS3ClientFromEnv(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// RemoveRetentionTag rewrites the object's tag set without the retention
// tag. Other tags on the object are preserved.
func (s *S3Store) RemoveRetentionTag(ctx context.Context, key string) error {
	current, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to read tags for %s: %w", key, err)
	}

	remaining := make([]s3types.Tag, 0, len(current.TagSet))
	found := false
	for _, tag := range current.TagSet {
		if aws.ToString(tag.Key) == domain.RetentionTagKey {
			found = true
			continue
		}
		remaining = append(remaining, tag)
	}
	if !found {
		s.logger.Debugw("object carries no retention tag", "bucket", s.bucket, "key", key)
		return nil
	}

	if len(remaining) == 0 {
		_, err = s.client.DeleteObjectTagging(ctx, &s3.DeleteObjectTaggingInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete tags for %s: %w", key, err)
		}
	} else {
		_, err = s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
			Bucket:  aws.String(s.bucket),
			Key:     aws.String(key),
			Tagging: &s3types.Tagging{TagSet: remaining},
		})
		if err != nil {
			return fmt.Errorf("failed to rewrite tags for %s: %w", key, err)
		}
	}

	s.logger.Infow("retention tag removed", "bucket", s.bucket, "key", key)
	return nil
}
