// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// Objects above this size go through the multipart uploader
const minMultipartSize = 12 << 20

type S3Client struct {
	C          *s3.Client
	Bucket     *string
	publicBase string
}

func NewS3() (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("s3.access_key_id"),
			viper.GetString("s3.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("s3.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if e := viper.GetString("s3.endpoint"); e != "" {
			o.BaseEndpoint = aws.String(e)
		}
		o.Region = viper.GetString("s3.region")
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:          client,
		Bucket:     bucket,
		publicBase: strings.TrimSuffix(viper.GetString("s3.public_base"), "/"),
	}, nil
}

// Put streams an object to the bucket. Larger bodies go through the
// multipart uploader, everything else is a single PutObject call
func (s *S3Client) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:        s.Bucket,
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	}

	if size > minMultipartSize {
		u := manager.NewUploader(s.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err := u.Upload(ctx, input)
		return err
	}

	_, err := s.C.PutObject(ctx, input)
	return err
}

// Exists checks whether an object is present in the bucket. A NotFound
// answer from the API is not an error
func (s *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return false, nil
			}
		}

		return false, err
	}

	return true, nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	return err
}

// URL returns the public address of an object
func (s *S3Client) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, *s.Bucket, key)
}
