// Package remote is the owner-scoped document store shared by every device of
// a user, and the typed record stores built on it.
package remote

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Document is one stored document: its id within the collection and its fields.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Value: value})
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// DocumentStore is the remote document database.
//
// Get returns models.ErrNotFound for a missing document. Watch delivers the
// full result of q immediately and again after every change; the channel
// keeps only the latest undelivered snapshot and is closed when ctx ends or
// the listener fails.
type DocumentStore interface {
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, q Query) ([]Document, error)
	// DeleteAll removes ids atomically, or in atomic batches where the
	// backend caps transaction size. Retrying after a failure is safe.
	DeleteAll(ctx context.Context, collection string, ids []string) error
	Watch(ctx context.Context, q Query) (<-chan []Document, error)
}

// SendLatest delivers v on a buffered channel owned by a single sender,
// replacing a snapshot the receiver has not picked up yet.
func SendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Matches reports whether data satisfies every filter of q.
func Matches(q Query, data map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := data[f.Field]
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// SortDocuments orders docs in place by q.OrderBy. Documents missing the
// field sort first; ties fall back to id order.
func SortDocuments(q Query, docs []Document) {
	if q.OrderBy == "" {
		slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.ID, b.ID) })
		return
	}
	slices.SortFunc(docs, func(a, b Document) int {
		c := compareValues(a.Data[q.OrderBy], b.Data[q.OrderBy])
		if c == 0 {
			return strings.Compare(a.ID, b.ID)
		}
		if q.Descending {
			return -c
		}
		return c
	})
}

// compareValues orders the scalar values documents hold. Strings that parse
// as RFC 3339 times compare as times, since JSON-backed stores keep times as
// text. Values of different kinds order by kind: nil, bool, number, time,
// string, then anything else.
func compareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	switch ka {
	case kindNil:
		return 0
	case kindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case kindNumber:
		fa, _ := asFloat(a)
		fb, _ := asFloat(b)
		return cmp.Compare(fa, fb)
	case kindTime:
		ta, _ := asTime(a)
		tb, _ := asTime(b)
		return ta.Compare(tb)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

const (
	kindNil = iota
	kindBool
	kindNumber
	kindTime
	kindString
	kindOther
)

func kindOf(v any) int {
	if v == nil {
		return kindNil
	}
	if _, ok := v.(bool); ok {
		return kindBool
	}
	if _, ok := asFloat(v); ok {
		return kindNumber
	}
	if _, ok := asTime(v); ok {
		return kindTime
	}
	if _, ok := v.(string); ok {
		return kindString
	}
	return kindOther
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
