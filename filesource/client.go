package filesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Client is the remote file source the ingestors read submitter
// deliveries from: listing, checksums and whole-file reads. All
// operations are synchronous with a bounded retry budget.
type Client interface {
	List(ctx context.Context, prefix string) ([]Entry, error)
	MD5(ctx context.Context, key string) (string, error)
	ReadText(ctx context.Context, key string) (string, error)
	ReadJSON(ctx context.Context, key string, v interface{}) error
	Healthcheck(ctx context.Context) error
}

// Entry is one listed remote file.
type Entry struct {
	Key  string
	Name string
	Size int64
}

type S3Client struct {
	s3         *s3.S3
	bucketName string
	basePath   string
}

func NewClient(bucketName string, basePath string, awsRegion string) (Client, error) {
	hc := http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   20,
			TLSHandshakeTimeout:   3 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	sess, err := session.NewSession(
		&aws.Config{
			Region:     aws.String(awsRegion),
			MaxRetries: aws.Int(1),
			HTTPClient: &hc,
		})
	if err != nil {
		return nil, err
	}

	return &S3Client{
		s3:         s3.New(sess),
		bucketName: bucketName,
		basePath:   strings.Trim(basePath, "/"),
	}, nil
}

func (c *S3Client) List(ctx context.Context, prefix string) ([]Entry, error) {
	fullPrefix := c.fullKey(prefix)
	var entries []Entry
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucketName),
		Prefix: aws.String(fullPrefix),
	}
	err := c.s3.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			entries = append(entries, Entry{
				Key:  key,
				Name: path.Base(key),
				Size: aws.Int64Value(obj.Size),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", fullPrefix, err)
	}
	return entries, nil
}

// MD5 returns the content checksum of a remote file. The ETag is the
// MD5 for objects uploaded in a single part, which submitter
// deliveries are.
func (c *S3Client) MD5(ctx context.Context, key string) (string, error) {
	out, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(c.fullKey(key)),
	})
	if err != nil {
		return "", err
	}
	return strings.Trim(aws.StringValue(out.ETag), `"`), nil
}

func (c *S3Client) ReadText(ctx context.Context, key string) (string, error) {
	b, err := c.readAll(ctx, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *S3Client) ReadJSON(ctx context.Context, key string, v interface{}) error {
	b, err := c.readAll(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *S3Client) readAll(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		resp, err := c.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucketName),
			Key:    aws.String(c.fullKey(key)),
		})
		if err != nil {
			if e, ok := err.(awserr.Error); ok && e.Code() == s3.ErrCodeNoSuchKey {
				return backoff.Permanent(fmt.Errorf("remote file %s does not exist", key))
			}
			log.WithError(err).WithField("key", key).Warn("Remote read failed, retrying")
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err
	}, policy)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *S3Client) Healthcheck(ctx context.Context) error {
	_, err := c.s3.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucketName),
	})
	if err != nil {
		return fmt.Errorf("cannot access remote file bucket %s: %w", c.bucketName, err)
	}
	return nil
}

func (c *S3Client) fullKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.basePath == "" {
		return key
	}
	if key == "" {
		return c.basePath
	}
	return c.basePath + "/" + key
}
