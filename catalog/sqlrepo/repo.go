// Package sqlrepo stores catalog items directly in Postgres, for deployments that reach the
// database without going through PostgREST.
package sqlrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/jrsteele09/go-roleplay-desk/catalog"
)

var _ catalog.Repo = (*Repo)(nil)

// Querier is satisfied by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Repo struct {
	db Querier
}

func New(db Querier) *Repo {
	return &Repo{db: db}
}

// Connect opens and pings a Postgres connection.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func (r *Repo) List(ctx context.Context) ([]catalog.Item, error) {
	query, args, err := psql.
		Select("id", "name", "quantity", "image_url").
		From("items").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []catalog.Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repo) Insert(ctx context.Context, item catalog.Item) (*catalog.Item, error) {
	query, args, err := psql.
		Insert("items").
		Columns("name", "quantity", "image_url").
		Values(item.Name, item.Quantity, item.ImageURL).
		Suffix("returning id, name, quantity, image_url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stored catalog.Item
	if err := r.db.GetContext(ctx, &stored, query, args...); err != nil {
		return nil, err
	}
	return &stored, nil
}
