// Package common contains shared constants and sentinel errors used across
// the files manager components.
package common

import "time"

const (
	// TokenHeaderName carries the session token on authenticated requests.
	TokenHeaderName = "X-Token"

	// SessionKeyPrefix prefixes session tokens in the cache.
	SessionKeyPrefix = "auth_"

	// DefaultSessionTTL is the lifetime of a session token.
	DefaultSessionTTL = 24 * time.Hour

	// RootParentID is the parent of top-level nodes.
	RootParentID = "0"

	// ThumbnailQueueName and EmailQueueName name the two job queues.
	ThumbnailQueueName = "thumbnail generation"
	EmailQueueName     = "email sending"
)

// ThumbnailWidths are the widths derived for every uploaded image.
var ThumbnailWidths = []int{500, 250, 100}
