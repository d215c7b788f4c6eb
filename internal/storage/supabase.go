package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// SupabaseStorage stores evidence in one Supabase Storage bucket
type SupabaseStorage struct {
	client *storage_go.Client
	cfg    BucketConfig
	logger *zap.SugaredLogger
}

// NewSupabaseStorage creates a client for one bucket of the project at projectURL
func NewSupabaseStorage(projectURL, apiKey string, cfg BucketConfig, logger *zap.SugaredLogger) *SupabaseStorage {
	endpoint := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &SupabaseStorage{
		client: storage_go.NewClient(endpoint, apiKey, map[string]string{"apikey": apiKey}),
		cfg:    cfg,
		logger: logger,
	}
}

// EnsureBucket lists the project's buckets and creates ours if absent
func (s *SupabaseStorage) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buckets, err := s.client.ListBuckets()
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	for _, b := range buckets {
		if b.Name == s.cfg.Name || b.Id == s.cfg.Name {
			return nil
		}
	}

	opts := storage_go.BucketOptions{
		Public:           s.cfg.Public,
		AllowedMimeTypes: s.cfg.AllowedMIMETypes,
	}
	if s.cfg.FileSizeLimit > 0 {
		opts.FileSizeLimit = strconv.FormatInt(s.cfg.FileSizeLimit, 10)
	}
	if _, err := s.client.CreateBucket(s.cfg.Name, opts); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.cfg.Name, err)
	}

	s.logger.Infow("Storage bucket created",
		"bucket", s.cfg.Name,
		"public", s.cfg.Public,
		"file_size_limit", s.cfg.FileSizeLimit,
	)
	return nil
}

// Upload stores body at path. Existing objects are never overwritten.
func (s *SupabaseStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	upsert := false
	_, err := s.client.UploadFile(s.cfg.Name, path, &ctxReader{ctx: ctx, r: body}, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// PublicURL returns the unauthenticated download URL for path
func (s *SupabaseStorage) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.cfg.Name, path).SignedURL
}

// Remove deletes the object at path
func (s *SupabaseStorage) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := s.client.RemoveFile(s.cfg.Name, []string{path})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if len(removed) == 0 {
		return ErrObjectNotFound
	}
	return nil
}

// ctxReader fails reads once ctx is done, which aborts a streaming upload
// since the storage client takes no context of its own
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
