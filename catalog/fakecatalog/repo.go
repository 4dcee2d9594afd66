package fakecatalog

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
)

var _ catalog.Repo = (*Repo)(nil)

type Repo struct {
	lock   sync.RWMutex
	items  []catalog.Item
	nextID int64
}

func New() *Repo {
	return &Repo{nextID: 1}
}

func (r *Repo) List(context.Context) ([]catalog.Item, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return append([]catalog.Item{}, r.items...), nil
}

func (r *Repo) Insert(_ context.Context, item catalog.Item) (*catalog.Item, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	item.ID = r.nextID
	r.nextID++
	r.items = append(r.items, item)
	return &item, nil
}
