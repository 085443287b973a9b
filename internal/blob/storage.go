// Package blob persists file content. A locator names stored bytes: an
// absolute path for the local backend, an object key for S3. Thumbnails
// are stored under derived locators (see models.ThumbnailPath).
package blob

import "context"

type Storage interface {
	// Put stores data under a freshly generated locator and returns it.
	Put(ctx context.Context, data []byte) (string, error)
	// PutAt stores data under locator, replacing what was there.
	PutAt(ctx context.Context, locator string, data []byte) error
	// Get returns common.ErrorNotFound when nothing is stored at locator.
	Get(ctx context.Context, locator string) ([]byte, error)
	// Delete removes what is stored at locator. Deleting nothing is not an
	// error.
	Delete(ctx context.Context, locator string) error
}
