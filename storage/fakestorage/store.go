package fakestorage

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/storage"
)

var _ storage.ObjectStore = (*Store)(nil)

type Object struct {
	Body        []byte
	ContentType string
}

type Store struct {
	lock    sync.RWMutex
	objects map[string]Object
}

func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

func (s *Store) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.objects[key]; ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "object %s exists", key)
	}
	s.objects[key] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return "https://storage.test/" + key
}

func (s *Store) Get(key string) (Object, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	o, ok := s.objects[key]
	return o, ok
}
