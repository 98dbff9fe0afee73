package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"formcraft/internal/core/config"
	"formcraft/pkg/utils"
)

var ErrDisabled = errors.New("blob storage is not configured")

// Store 是 S3 兼容存储（默认 Cloudflare R2），只负责上传签名和存在性检查
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// New returns nil when the bucket or credentials are missing.
func New(c config.Blob) *Store {
	if !c.Enabled() {
		return nil
	}
	endpoint := c.Endpoint
	if endpoint == "" && c.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	region := c.Region
	if region == "" {
		region = "auto"
	}
	cfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		Region:      region,
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
	ttl := time.Duration(c.PresignTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{client: client, presigner: s3.NewPresignClient(client), bucket: c.Bucket, ttl: ttl}
}

// PresignPut returns an upload URL for key and the time it stops working.
func (s *Store) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	if s == nil {
		return "", time.Time{}, ErrDisabled
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	expires := time.Now().Add(s.ttl)
	req, err := s.presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", time.Time{}, err
	}
	return req.URL, expires, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s == nil {
		return false, ErrDisabled
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey: forms/<formID>/<fieldID>/<id>-<name>
func ObjectKey(formID, fieldID, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return path.Join("forms", formID, fieldID, utils.NewID()+"-"+name)
}

// KeyBelongsTo reports whether key was issued for this form field.
func KeyBelongsTo(key, formID, fieldID string) bool {
	return strings.HasPrefix(key, path.Join("forms", formID, fieldID)+"/")
}
