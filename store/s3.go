package store

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// NewS3 returns a Client backed by an S3 bucket mirroring a CI artifact
// store. Objects are keyed as <repo>/<commit>/<name>.
func NewS3(bucketName string) (Client, error) {
	var configs []func(*config.LoadOptions) error

	// Used by the test suite
	if val, ok := os.LookupEnv("PREBUILT_S3_ENDPOINT"); ok {
		configs = append(configs, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               val,
				HostnameImmutable: true,
				PartitionID:       "aws",
			}, nil
		})))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), configs...)
	if err != nil {
		return nil, err
	}
	s3Client := s3.NewFromConfig(cfg)

	_, err = s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: &bucketName,
	})
	if err != nil {
		return nil, err
	}

	return s3Store{
		bucketName: aws.String(bucketName),
		client:     s3Client,
	}, nil
}

type s3Store struct {
	bucketName *string
	client     *s3.Client
}

func (s3Store) keyFor(repo, commit, name string) string {
	return repo + "/" + commit + "/" + name
}

func coerceAWSError(repo, commit, name string, err error) error {
	var (
		bne *types.NoSuchBucket
		nsk *types.NoSuchKey
		nf  *types.NotFound
	)
	if errors.As(err, &bne) || errors.As(err, &nsk) || errors.As(err, &nf) {
		return ErrNotFound{Repo: repo, Commit: commit, Name: name}
	}

	if sErr, ok := err.(*smithy.OperationError); ok {
		errString := sErr.Error()
		if strings.Contains(errString, "NoSuchBucket") || strings.Contains(errString, "NoSuchKey") || strings.Contains(errString, "NotFound") {
			return ErrNotFound{Repo: repo, Commit: commit, Name: name}
		}
	}

	return err
}

func (s s3Store) Head(repo, commit, name string) (int64, error) {
	key := s.keyFor(repo, commit, name)
	head, err := s.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: s.bucketName,
		Key:    &key,
	})
	if err != nil {
		return 0, coerceAWSError(repo, commit, name, err)
	}

	return head.ContentLength, nil
}

func (s s3Store) Fetch(repo, commit, name string) (int64, io.ReadCloser, error) {
	key := s.keyFor(repo, commit, name)
	obj, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: s.bucketName,
		Key:    &key,
	})
	if err != nil {
		return 0, nil, coerceAWSError(repo, commit, name, err)
	}

	return obj.ContentLength, obj.Body, nil
}
