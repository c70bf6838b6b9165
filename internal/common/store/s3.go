package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datapole/go-etl/internal/domain"
)

// S3Store reads and writes batches under the raw/{source}/ and
// processed/{source}/ prefixes of one bucket. Fetched batches are written
// through the local store so later runs skip the download.
type S3Store struct {
	client *s3.Client
	bucket string
	cache  *LocalStore
}

// NewS3Store connects to the bucket holding remote batches. Credentials
// come from the default AWS provider chain.
func NewS3Store(ctx context.Context, bucket, region string, cache *LocalStore) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, cache: cache}, nil
}

// Origin implements Store.
func (s *S3Store) Origin() domain.Origin {
	return domain.OriginRemote
}

// List implements Store.
func (s *S3Store) List(ctx context.Context, source domain.Source, dr DateRange) ([]domain.BatchRef, error) {
	prefix := "raw/" + string(source) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var refs []domain.BatchRef
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			token := DateToken(name)
			if !dr.Contains(token) {
				continue
			}
			refs = append(refs, domain.BatchRef{
				Source:    source,
				Origin:    domain.OriginRemote,
				Key:       key,
				Name:      name,
				DateToken: token,
			})
		}
	}
	return refs, nil
}

// Fetch implements Store.
func (s *S3Store) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", s.bucket, ref.Key, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, ref.Key, err)
	}

	if s.cache != nil {
		if _, err := s.cache.SaveRaw(ctx, ref.Source, ref.Name, payload); err != nil {
			log.Printf("[Store] Failed to cache %s locally: %v", ref.Name, err)
		}
	}

	records, err := decodeRecords(payload)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", ref.Name, err)
	}
	return &domain.RawBatch{Ref: ref, Records: records}, nil
}

// SaveRaw implements Store.
func (s *S3Store) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return s.put(ctx, "raw/"+string(source)+"/"+name, payload)
}

// SaveProcessed implements Store.
func (s *S3Store) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return s.put(ctx, "processed/"+string(source)+"/"+name, payload)
}

func (s *S3Store) put(ctx context.Context, key string, payload []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}
