package storage

import (
	"context"
	"time"
)

// ObjectStorageService abstracts the statement file store. Statement files
// are uploaded by clients through presigned URLs and fetched back by the
// reconciliation import flow.
type ObjectStorageService interface {
	// GenerateUploadURL returns a presigned URL a client can PUT a statement
	// file to, along with the URL expiration time
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned URL for fetching a stored file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes a stored file
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists reports whether a file was actually uploaded under a key
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ObjectDownloader fetches stored file contents. The statement importer
// needs only this slice of the storage surface.
type ObjectDownloader interface {
	Download(ctx context.Context, storageKey string) ([]byte, error)
}
