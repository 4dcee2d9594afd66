// Package storage uploads public objects, such as catalog item images.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultItemBucket holds catalog item images.
const DefaultItemBucket = "item-images"

// ObjectStore writes objects to a single public bucket.
type ObjectStore interface {
	// Put stores body under key, replacing nothing: an existing key is an error.
	Put(ctx context.Context, key string, body []byte, contentType string) error
	// PublicURL is where a stored key can be fetched without credentials.
	PublicURL(key string) string
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ImageKey names an uploaded image after what it shows, with a random suffix so names never clash.
func ImageKey(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "item"
	}
	return fmt.Sprintf("%s_%s.jpg", slug, uuid.New().String())
}
