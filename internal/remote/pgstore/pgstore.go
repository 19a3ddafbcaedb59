// Package pgstore is a remote.DocumentStore on a self-hosted PostgreSQL
// database. Documents live as JSONB rows; change notifications arrive over
// LISTEN/NOTIFY so every device sees writes made by the others.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
)

type watcher struct {
	q    remote.Query
	wake chan struct{}
}

// Store implements remote.DocumentStore against the documents table.
type Store struct {
	db  *sql.DB
	log *zap.Logger

	mu       sync.Mutex
	watchers map[*watcher]struct{}
	listener *pq.Listener
}

var _ remote.DocumentStore = (*Store)(nil)

// New wraps an initialized database. Without Listen, watchers only see
// writes made through this Store.
func New(db *sql.DB, log *zap.Logger) *Store {
	return &Store{
		db:       db,
		log:      log,
		watchers: make(map[*watcher]struct{}),
	}
}

// Open connects to dsn, bootstraps the schema and subscribes to change notifications.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	db, err := InitPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := New(db, log)
	if err := s.Listen(ctx, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Listen subscribes to NotifyChannel and wakes the watchers of every
// collection named in a notification until ctx ends.
func (s *Store) Listen(ctx context.Context, dsn string) error {
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.log.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := l.Listen(NotifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	go func() {
		defer l.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				if n == nil {
					// reconnected; notifications may have been missed
					s.wakeAll()
					continue
				}
				s.notify(n.Extra)
			case <-time.After(90 * time.Second):
				go l.Ping()
			}
		}
	}()
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	l := s.listener
	s.listener = nil
	s.mu.Unlock()
	if l != nil {
		l.Close()
	}
	return s.db.Close()
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, collection, id, raw)
	if err != nil {
		return fmt.Errorf("%w: upsert %s/%s: %w", models.ErrTransientIO, collection, id, err)
	}
	s.notify(collection)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Document{}, fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
	}
	if err != nil {
		return remote.Document{}, fmt.Errorf("%w: get %s/%s: %w", models.ErrTransientIO, collection, id, err)
	}
	data, err := decode(raw)
	if err != nil {
		return remote.Document{}, fmt.Errorf("%w: document %s/%s: %w", models.ErrParseFailure, collection, id, err)
	}
	return remote.Document{ID: id, Data: data}, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %w", models.ErrTransientIO, collection, id, err)
	}
	s.notify(collection)
	return nil
}

// DeleteAll removes ids in a single statement.
func (s *Store) DeleteAll(ctx context.Context, collection string, ids []string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`, collection, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("%w: delete batch in %s: %w", models.ErrTransientIO, collection, err)
	}
	s.notify(collection)
	return nil
}

// Find matches filters with JSONB containment and sorts in Go, since times
// are stored as RFC 3339 text.
func (s *Store) Find(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	filter := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}
	rawFilter, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM documents WHERE collection = $1 AND data @> $2::jsonb
	`, q.Collection, string(rawFilter))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", models.ErrTransientIO, q.Collection, err)
	}
	defer rows.Close()

	docs := []remote.Document{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		data, err := decode(raw)
		if err != nil {
			s.log.Warn("skipping malformed document", zap.String("collection", q.Collection), zap.String("id", id), zap.Error(err))
			continue
		}
		docs = append(docs, remote.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", models.ErrTransientIO, q.Collection, err)
	}
	remote.SortDocuments(q, docs)
	return docs, nil
}

// Watch re-runs q whenever its collection changes.
func (s *Store) Watch(ctx context.Context, q remote.Query) (<-chan []remote.Document, error) {
	first, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	w := &watcher{q: q, wake: make(chan struct{}, 1)}
	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	out := make(chan []remote.Document, 1)
	out <- first
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			}
			docs, err := s.Find(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("refresh failed", zap.String("collection", q.Collection), zap.Error(err))
				continue
			}
			remote.SendLatest(out, docs)
		}
	}()
	return out, nil
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		if w.q.Collection == collection {
			wake(w)
		}
	}
}

func (s *Store) wakeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		wake(w)
	}
}

func wake(w *watcher) {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func decode(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
