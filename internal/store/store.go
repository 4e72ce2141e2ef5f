// Package store defines the persistent item-store abstraction the event log
// and projections are built on: put-item plus range queries by partition key,
// with secondary lookups by attribute value. Backends live in subpackages.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a query or point lookup matches nothing.
var ErrNotFound = errors.New("item not found")

// Item is a flat attribute map. All values are strings; numeric attributes
// are stored as decimal strings so they survive page-token round trips.
type Item map[string]string

// Clone returns a copy of the item.
func (i Item) Clone() Item {
	out := make(Item, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// Well-known attribute names shared by all tables.
const (
	AttrPK = "PK"
	AttrSK = "SK"
)

// Query describes a range query within one partition.
type Query struct {
	PartitionKey string
	SortPrefix   string // match SK by prefix; empty matches the partition
	Descending   bool
	Limit        int
	StartKey     Item // exclusive start key from a previous page, nil for the first
}

// QueryResult carries one page of items. LastKey is nil when the result set
// is exhausted; otherwise it round-trips through a page token.
type QueryResult struct {
	Items   []Item
	LastKey Item
}

// ItemStore is the capability surface the core needs from its persistent
// store. Implementations must treat PutItem for an existing (PK, SK) pair as
// a replace.
type ItemStore interface {
	PutItem(ctx context.Context, table string, item Item) error

	// Query runs a range query within a partition.
	Query(ctx context.Context, table string, q Query) (*QueryResult, error)

	// QueryByAttr emulates a secondary-index range query: all items in the
	// table whose named attribute equals value, paginated.
	QueryByAttr(ctx context.Context, table, attr, value string, limit int, startKey Item) (*QueryResult, error)
}
