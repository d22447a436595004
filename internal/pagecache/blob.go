// Package pagecache stores extracted page field sets in an opaque key-value
// blob store under the documented key layout, and applies human edits to
// cached pages with per-key serialization.
package pagecache

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a key has no blob. Match with eris.Is.
var ErrNotFound = eris.New("pagecache: key not found")

// Blob is the minimal object-store surface the cache needs. Production runs
// back it with object storage; FSBlob and MemoryBlob cover single-node and
// test use.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// AccountPageKey builds the cache key for a page under one account view.
// accountIndex is the account's zero-based position in the document roster;
// pageNumber is 1-based.
func AccountPageKey(documentID string, accountIndex, pageNumber int) string {
	return fmt.Sprintf("page_data/%s/account_%d/page_%d.json", documentID, accountIndex, pageNumber)
}

// DocumentPageKey builds the cache key for a page of a document with no
// account roster. pageIndex is zero-based.
func DocumentPageKey(documentID string, pageIndex int) string {
	return fmt.Sprintf("page_data/%s/page_%d.json", documentID, pageIndex)
}

// DocumentPrefix is the key prefix holding every cached page of a document.
func DocumentPrefix(documentID string) string {
	return fmt.Sprintf("page_data/%s/", documentID)
}
