// Package supabase stores objects through the Supabase Storage REST API.
package supabase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
	"github.com/jrsteele09/go-roleplay-desk/storage"
)

var _ storage.ObjectStore = (*Store)(nil)

type Store struct {
	rest   *resty.Client
	bucket string
}

func New(rest *resty.Client, bucket string) *Store {
	return &Store{rest: rest, bucket: bucket}
}

func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	resp, err := s.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		SetPathParams(map[string]string{"bucket": s.bucket, "key": key}).
		Post(supabase.StoragePath + "/object/{bucket}/{key}")
	if err != nil {
		return supabase.TransportError("storage put", err)
	}
	if resp.IsError() {
		return fmt.Errorf("storage put %s: %w", key, supabase.DecodeError(resp))
	}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s%s/object/public/%s/%s",
		s.rest.BaseURL, supabase.StoragePath, url.PathEscape(s.bucket), url.PathEscape(key))
}
