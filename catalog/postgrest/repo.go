// Package postgrest stores catalog items in the Supabase "items" table through PostgREST.
package postgrest

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
)

const itemsTable = supabase.RESTPath + "/items"

var _ catalog.Repo = (*Repo)(nil)

type Repo struct {
	rest       *resty.Client
	maxRetries uint64
}

func New(rest *resty.Client) *Repo {
	return &Repo{rest: rest, maxRetries: 3}
}

// List is a read, so transient failures are retried.
func (r *Repo) List(ctx context.Context) ([]catalog.Item, error) {
	var items []catalog.Item
	op := func() error {
		items = nil
		resp, err := r.rest.R().
			SetContext(ctx).
			SetQueryParam("select", "*").
			SetQueryParam("order", "id.asc").
			SetResult(&items).
			Get(itemsTable)
		if err != nil {
			return supabase.TransportError("list items", err)
		}
		if resp.IsError() {
			err := fmt.Errorf("list items: %w", supabase.DecodeError(resp))
			if !apperrors.Is(err, apperrors.ErrRemoteUnavailable) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx)); err != nil {
		return nil, err
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return items, nil
}

// Insert is not retried: a timed out insert may have landed.
func (r *Repo) Insert(ctx context.Context, item catalog.Item) (*catalog.Item, error) {
	var out []catalog.Item
	resp, err := r.rest.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(itemIn{Name: item.Name, Quantity: item.Quantity, ImageURL: item.ImageURL}).
		SetResult(&out).
		Post(itemsTable)
	if err != nil {
		return nil, supabase.TransportError("insert item", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("insert item: %w", supabase.DecodeError(resp))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert item: %w: empty representation", apperrors.ErrRemoteResponse)
	}
	return &out[0], nil
}

type itemIn struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	ImageURL *string `json:"image_url"`
}
