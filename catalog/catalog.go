// Package catalog keeps the inventory of items shown on the items page.
package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/storage"
)

type Item struct {
	ID       int64   `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Quantity int     `json:"quantity" db:"quantity"`
	ImageURL *string `json:"image_url,omitempty" db:"image_url"`
}

// NewItem is an item to add. Image is optional.
type NewItem struct {
	Name        string
	Quantity    int
	Image       []byte
	ContentType string
}

func (n NewItem) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "item name is required")
	}
	if n.Quantity < 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "item quantity must not be negative")
	}
	return nil
}

// Repo stores items.
type Repo interface {
	List(ctx context.Context) ([]Item, error)
	Insert(ctx context.Context, item Item) (*Item, error)
}

type Service struct {
	repo   Repo
	images storage.ObjectStore
}

func NewService(repo Repo, images storage.ObjectStore) *Service {
	return &Service{repo: repo, images: images}
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "list items")
	}
	return items, nil
}

// Add uploads the image, if any, then stores the item pointing at the image's public URL.
func (s *Service) Add(ctx context.Context, in NewItem) (*Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	item := Item{Name: strings.TrimSpace(in.Name), Quantity: in.Quantity}
	if len(in.Image) > 0 {
		contentType := in.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		key := storage.ImageKey(item.Name)
		if err := s.images.Put(ctx, key, in.Image, contentType); err != nil {
			return nil, errors.Wrapf(err, "upload image for %q", item.Name)
		}
		url := s.images.PublicURL(key)
		item.ImageURL = &url
		log.Debug().Str("key", key).Msg("item image uploaded")
	}

	stored, err := s.repo.Insert(ctx, item)
	if err != nil {
		return nil, errors.Wrapf(err, "insert item %q", item.Name)
	}
	return stored, nil
}
