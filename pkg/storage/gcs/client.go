package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/logger"
)

const (
	pingTimeout   = 5 * time.Second
	uploadTimeout = 30 * time.Second
	publicHost    = "https://storage.googleapis.com"
)

var errBucketRequired = errors.New("gcs bucket name is required")

// objectInserter is the slice of the JSON API used for uploads and health.
type objectInserter interface {
	Insert(ctx context.Context, bucket string, object *storage.Object, media io.Reader) (*storage.Object, error)
	BucketExists(ctx context.Context, bucket string) error
}

// Client writes return evidence into a single bucket under a folder prefix.
type Client struct {
	api    objectInserter
	bucket string
	folder string
	logg   *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a storage JSON API client and checks the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errBucketRequired
	}

	svc, err := storage.NewService(ctx, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := newClient(apiService{svc: svc}, bucket, cfg.EvidenceFolder, logg)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	client.logg.Info(ctx, "gcs client initialized")
	return client, nil
}

func newClient(api objectInserter, bucket, folder string, logg *logger.Logger) *Client {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{
		api:    api,
		bucket: bucket,
		folder: strings.Trim(strings.TrimSpace(folder), "/"),
		logg:   logg,
	}
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.api.BucketExists(ctx, c.bucket); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("bucket %q does not exist", c.bucket)
		}
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	return nil
}

// Upload stores body under the evidence folder and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("gcs client not initialized")
	}
	name := strings.TrimLeft(objectName, "/")
	if name == "" {
		return "", errors.New("object name is required")
	}
	if c.folder != "" {
		name = path.Join(c.folder, name)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	obj, err := c.api.Insert(ctx, c.bucket, &storage.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: "private, max-age=0",
	}, body)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if obj != nil && obj.Name != "" {
		name = obj.Name
	}

	c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"bucket": c.bucket, "object": name}), "evidence uploaded")
	return PublicURL(c.bucket, name), nil
}

// PublicURL is the storage.googleapis.com address of an object.
func PublicURL(bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", publicHost, url.PathEscape(bucket), strings.Join(segments, "/"))
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}

type apiService struct {
	svc *storage.Service
}

func (a apiService) Insert(ctx context.Context, bucket string, object *storage.Object, media io.Reader) (*storage.Object, error) {
	return a.svc.Objects.Insert(bucket, object).
		Media(media, googleapi.ContentType(object.ContentType)).
		Context(ctx).
		Do()
}

func (a apiService) BucketExists(ctx context.Context, bucket string) error {
	_, err := a.svc.Buckets.Get(bucket).Context(ctx).Do()
	return err
}
