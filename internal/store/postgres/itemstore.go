// Package postgres backs the item-store abstraction with a single relational
// shape: one table per logical store, each row holding a partition key, a
// sort key and a JSONB attribute document. Range queries become indexed
// (pk, sk) scans; attribute lookups use expression indexes created by the
// migrations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/appmancer/foxy-backend/internal/store"
)

// ItemStore implements store.ItemStore on top of postgres.
type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// EnsureTable creates the backing table for a logical store if it does not
// exist, along with the attribute indexes used by QueryByAttr.
func (s *ItemStore) EnsureTable(ctx context.Context, table string, indexedAttrs ...string) error {
	ident := quoteIdent(table)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pk    TEXT NOT NULL,
			sk    TEXT NOT NULL,
			attrs JSONB NOT NULL,
			PRIMARY KEY (pk, sk)
		)
	`, ident)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	for _, attr := range indexedAttrs {
		idx := quoteIdent(fmt.Sprintf("%s_%s_idx", table, attr))
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s ((attrs->>'%s'))`, idx, ident, attr,
		)); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", table, attr, err)
		}
	}
	return nil
}

func (s *ItemStore) PutItem(ctx context.Context, table string, item store.Item) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	attrs, err := json.Marshal(map[string]string(item))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (pk, sk, attrs) VALUES ($1, $2, $3)
		ON CONFLICT (pk, sk) DO UPDATE SET attrs = EXCLUDED.attrs
	`, quoteIdent(table)), item[store.AttrPK], item[store.AttrSK], attrs)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (s *ItemStore) Query(ctx context.Context, table string, q store.Query) (*store.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT attrs FROM %s WHERE pk = $1 AND sk LIKE $2`, quoteIdent(table))
	args := []any{q.PartitionKey, likePrefix(q.SortPrefix)}

	if len(q.StartKey) > 0 {
		if q.Descending {
			query += fmt.Sprintf(" AND sk < $%d", len(args)+1)
		} else {
			query += fmt.Sprintf(" AND sk > $%d", len(args)+1)
		}
		args = append(args, q.StartKey[store.AttrSK])
	}
	if q.Descending {
		query += " ORDER BY sk DESC"
	} else {
		query += " ORDER BY sk ASC"
	}
	if q.Limit > 0 {
		// Fetch one extra row to decide whether a continuation key exists.
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, q.Limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	return collectPage(rows, q.Limit)
}

func (s *ItemStore) QueryByAttr(ctx context.Context, table, attr, value string, limit int, startKey store.Item) (*store.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT attrs FROM %s WHERE attrs->>'%s' = $1`, quoteIdent(table), attr)
	args := []any{value}

	if len(startKey) > 0 {
		query += fmt.Sprintf(" AND (pk, sk) > ($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, startKey[store.AttrPK], startKey[store.AttrSK])
	}
	query += " ORDER BY pk ASC, sk ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", table, attr, err)
	}
	defer rows.Close()

	return collectPage(rows, limit)
}

func collectPage(rows *sql.Rows, limit int) (*store.QueryResult, error) {
	var items []store.Item
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		items = append(items, store.Item(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	res := &store.QueryResult{Items: items}
	if limit > 0 && len(items) > limit {
		res.Items = items[:limit]
		last := res.Items[len(res.Items)-1]
		res.LastKey = store.Item{store.AttrPK: last[store.AttrPK], store.AttrSK: last[store.AttrSK]}
	}
	return res, nil
}

func likePrefix(prefix string) string {
	escaped := ""
	for _, r := range prefix {
		if r == '%' || r == '_' || r == '\\' {
			escaped += `\`
		}
		escaped += string(r)
	}
	return escaped + "%"
}
