package tsutsumi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReleaseClient wraps an S3 client for the release bucket. Any
// S3-compatible endpoint works; Cloudflare R2 gets its endpoint derived
// from the account id.
type ReleaseClient struct {
	Client     *s3.Client
	BucketName string
}

// NewReleaseClient initializes the release bucket client from
// configuration values.
func NewReleaseClient(cfg *Config) (*ReleaseClient, error) {
	endpoint := cfg.Values["TSUTSUMI_S3_ENDPOINT"]
	accountID := cfg.Values["TSUTSUMI_S3_ACCOUNT_ID"]
	accessKey := cfg.Values["TSUTSUMI_S3_ACCESS_KEY_ID"]
	secretKey := cfg.Values["TSUTSUMI_S3_SECRET_ACCESS_KEY"]
	bucketName := cfg.Values["TSUTSUMI_S3_BUCKET"]

	if endpoint == "" && accountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, fmt.Errorf("release storage not configured (need TSUTSUMI_S3_ENDPOINT or TSUTSUMI_S3_ACCOUNT_ID, TSUTSUMI_S3_ACCESS_KEY_ID, TSUTSUMI_S3_SECRET_ACCESS_KEY, TSUTSUMI_S3_BUCKET)")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	options := []func(*config.LoadOptions) error{
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(cfg.get("TSUTSUMI_S3_REGION", "auto")),
	}

	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogSigning|aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load release storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &ReleaseClient{
		Client:     client,
		BucketName: bucketName,
	}, nil
}

// key applies the configured key prefix.
func (r *ReleaseClient) key(name string) string {
	if S3Prefix == "" {
		return name
	}
	return S3Prefix + "/" + name
}

// DownloadFile fetches an object from the release bucket.
func (r *ReleaseClient) DownloadFile(ctx context.Context, name string) ([]byte, error) {
	output, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(r.key(name)),
	})
	if err != nil {
		return nil, err
	}
	defer output.Body.Close()

	return io.ReadAll(output.Body)
}

// UploadFile uploads an object to the release bucket.
func (r *ReleaseClient) UploadFile(ctx context.Context, name string, body []byte) error {
	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(r.key(name)),
		Body:   bytes.NewReader(body),
	})
	return err
}

// DeleteFile removes an object from the release bucket.
func (r *ReleaseClient) DeleteFile(ctx context.Context, name string) error {
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(r.key(name)),
	})
	return err
}

// ListFiles lists object names under the configured prefix.
func (r *ReleaseClient) ListFiles(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(r.BucketName)}
	if S3Prefix != "" {
		input.Prefix = aws.String(S3Prefix + "/")
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(r.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)
			if S3Prefix != "" {
				name = strings.TrimPrefix(name, S3Prefix+"/")
			}
			names = append(names, name)
		}
	}
	return names, nil
}
