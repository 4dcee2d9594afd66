package sqlrepo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	"github.com/jrsteele09/go-roleplay-desk/catalog/sqlrepo"
)

type recordingQuerier struct {
	query string
	args  []interface{}
}

func (q *recordingQuerier) SelectContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	q.query, q.args = query, args
	*dest.(*[]catalog.Item) = []catalog.Item{{ID: 1, Name: "Lamp"}}
	return nil
}

func (q *recordingQuerier) GetContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	q.query, q.args = query, args
	*dest.(*catalog.Item) = catalog.Item{ID: 9, Name: args[0].(string), Quantity: args[1].(int)}
	return nil
}

func TestRepo_List(t *testing.T) {
	q := &recordingQuerier{}
	items, err := sqlrepo.New(q).List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "SELECT id, name, quantity, image_url FROM items ORDER BY id", q.query)
}

func TestRepo_Insert(t *testing.T) {
	q := &recordingQuerier{}
	url := "https://storage.test/lamp.jpg"
	item, err := sqlrepo.New(q).Insert(context.Background(), catalog.Item{Name: "Lamp", Quantity: 2, ImageURL: &url})
	require.NoError(t, err)
	require.Equal(t, int64(9), item.ID)
	require.Equal(t, "INSERT INTO items (name,quantity,image_url) VALUES ($1,$2,$3) returning id, name, quantity, image_url", q.query)
	require.Len(t, q.args, 3)
}
