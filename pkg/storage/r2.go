// Package storage talks to Cloudflare R2 through its S3-compatible API and
// holds the upload policy for contact attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"altiora-site/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignedUpload is what a browser needs to PUT a file straight to R2.
type PresignedUpload struct {
	URL       string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	PublicURL string            `json:"publicUrl"`
	ExpiresIn int               `json:"expiresIn"`
}

// R2Client wraps an S3 client pointed at an R2 account.
type R2Client struct {
	s3        *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	expiry    time.Duration
}

// NewR2Client builds a client from R2 settings. It does not contact R2.
// The public URL is required: attachments are only accepted under it.
func NewR2Client(cfg config.R2Config) (*R2Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" || cfg.PublicURL == "" {
		return nil, config.ErrMissingR2
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	return newR2Client(endpoint, cfg), nil
}

func newR2Client(endpoint string, cfg config.R2Config) *R2Client {
	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
		// R2 rejects some of the default flexible checksums on PUT.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &R2Client{
		s3:        client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}
}

// PresignPut signs a PUT for key. The browser must send the returned headers
// unchanged or R2 rejects the signature.
func (c *R2Client) PresignPut(ctx context.Context, key, contentType string, size int64) (*PresignedUpload, error) {
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(c.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   map[string]string{"Content-Type": contentType},
		Key:       key,
		PublicURL: c.PublicURL(key),
		ExpiresIn: int(c.expiry.Seconds()),
	}, nil
}

// PutObject uploads body under key.
func (c *R2Client) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := c.s3.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is already stored.
func (c *R2Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", key, err)
}

// PublicURL is the CDN URL that serves key.
func (c *R2Client) PublicURL(key string) string {
	return c.publicURL + "/" + strings.TrimLeft(key, "/")
}

// IsPublicURL reports whether u points into this bucket's public domain.
func (c *R2Client) IsPublicURL(u string) bool {
	return IsUnderBase(c.publicURL, u)
}

// IsUnderBase reports whether u lives under base, on a path boundary.
func IsUnderBase(base, u string) bool {
	base = strings.TrimRight(base, "/")
	return base != "" && strings.HasPrefix(u, base+"/") && len(u) > len(base)+1
}
