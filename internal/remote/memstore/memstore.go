// Package memstore is an in-process remote.DocumentStore. It backs offline
// development and stands in for the cloud store in tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
)

// WriteHook can reject a write before it is applied.
type WriteHook func(op, collection, id string) error

type listener struct {
	q  remote.Query
	ch chan []remote.Document
}

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	listeners   map[*listener]struct{}
	hook        WriteHook
}

var _ remote.DocumentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		listeners:   make(map[*listener]struct{}),
	}
}

// FailWrites installs a hook consulted before every Set, Delete and DeleteAll.
// A nil hook accepts everything.
func (s *Store) FailWrites(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

func (s *Store) check(op, collection, id string) error {
	if s.hook == nil {
		return nil
	}
	return s.hook(op, collection, id)
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("set", collection, id); err != nil {
		return err
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	docs[id] = cloneMap(data)
	s.notify(collection)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return remote.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return remote.Document{}, fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
	}
	return remote.Document{ID: id, Data: cloneMap(data)}, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete", collection, id); err != nil {
		return err
	}
	delete(s.collections[collection], id)
	s.notify(collection)
	return nil
}

// DeleteAll removes ids all at once; a rejected id leaves the collection untouched.
func (s *Store) DeleteAll(ctx context.Context, collection string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if err := s.check("delete", collection, id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		delete(s.collections[collection], id)
	}
	s.notify(collection)
	return nil
}

func (s *Store) Find(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(q), nil
}

func (s *Store) Watch(ctx context.Context, q remote.Query) (<-chan []remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := &listener{q: q, ch: make(chan []remote.Document, 1)}

	s.mu.Lock()
	s.listeners[l] = struct{}{}
	remote.SendLatest(l.ch, s.find(q))
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, l)
		close(l.ch)
	}()
	return l.ch, nil
}

// Len reports the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *Store) find(q remote.Query) []remote.Document {
	var out []remote.Document
	for id, data := range s.collections[q.Collection] {
		if remote.Matches(q, data) {
			out = append(out, remote.Document{ID: id, Data: cloneMap(data)})
		}
	}
	remote.SortDocuments(q, out)
	if out == nil {
		out = []remote.Document{}
	}
	return out
}

// notify must be called with s.mu held.
func (s *Store) notify(collection string) {
	for l := range s.listeners {
		if l.q.Collection == collection {
			remote.SendLatest(l.ch, s.find(l.q))
		}
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]float64:
		out := make(map[string]float64, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	}
	return v
}
