package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	"github.com/jrsteele09/go-roleplay-desk/catalog/fakecatalog"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/storage/fakestorage"
)

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	images := fakestorage.New()
	svc := catalog.NewService(fakecatalog.New(), images)

	item, err := svc.Add(ctx, catalog.NewItem{Name: " Desk lamp ", Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), item.ID)
	require.Equal(t, "Desk lamp", item.Name)
	require.Nil(t, item.ImageURL)

	item, err = svc.Add(ctx, catalog.NewItem{Name: "Chair", Quantity: 0, Image: []byte("jpeg")})
	require.NoError(t, err)
	require.NotNil(t, item.ImageURL)

	key := strings.TrimPrefix(*item.ImageURL, "https://storage.test/")
	require.True(t, strings.HasPrefix(key, "chair_"))
	obj, ok := images.Get(key)
	require.True(t, ok)
	require.Equal(t, "image/jpeg", obj.ContentType)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestService_AddRejectsInvalidItems(t *testing.T) {
	svc := catalog.NewService(fakecatalog.New(), fakestorage.New())

	_, err := svc.Add(context.Background(), catalog.NewItem{Name: "  ", Quantity: 1})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = svc.Add(context.Background(), catalog.NewItem{Name: "Lamp", Quantity: -1})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}
