package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps blobs in an S3 bucket under "blobs/{id}".
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store creates a store writing to bucket.
func NewS3Store(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func objectKey(id string) string {
	return "blobs/" + id
}

// Put uploads b.
func (s *S3Store) Put(ctx context.Context, b Blob) error {
	key := objectKey(b.ID)
	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("bytes", len(b.Data)).
		Msg("Uploading blob to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String(b.MIMEType),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject: %w", err)
	}
	return nil
}

// Get downloads the blob with the given id.
func (s *S3Store) Get(ctx context.Context, id string) (*Blob, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("S3 GetObject: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return &Blob{ID: id, MIMEType: aws.ToString(result.ContentType), Data: data}, nil
}

// Delete removes the blob's object. S3 answers a delete of a missing key
// with success.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject: %w", err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", objectKey(id)).Msg("Deleted blob from S3")
	return nil
}
