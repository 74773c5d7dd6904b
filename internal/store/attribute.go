package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/types"
)

// attributeTable describes where one attribute kind lives.
type attributeTable struct {
	table      string
	joinTable  string
	joinColumn string
}

var attributeTables = map[types.AttributeKind]attributeTable{
	types.KindTag:   {table: "tags", joinTable: "whiskey_tags", joinColumn: "tag_id"},
	types.KindPlace: {table: "places", joinTable: "whiskey_places", joinColumn: "place_id"},
}

// AttributeRepository handles persistence for tags or places.
type AttributeRepository struct {
	db   *sql.DB
	kind types.AttributeKind
	t    attributeTable
}

func NewTagRepository(db *sql.DB) *AttributeRepository {
	return newAttributeRepository(db, types.KindTag)
}

func NewPlaceRepository(db *sql.DB) *AttributeRepository {
	return newAttributeRepository(db, types.KindPlace)
}

func newAttributeRepository(db *sql.DB, kind types.AttributeKind) *AttributeRepository {
	return &AttributeRepository{db: db, kind: kind, t: attributeTables[kind]}
}

func (r *AttributeRepository) Kind() types.AttributeKind {
	return r.kind
}

// List returns the owner's attributes, optionally only those assigned to
// at least one whiskey, ordered by name descending.
func (r *AttributeRepository) List(ctx context.Context, f scope.AttributeFilter) ([]types.Attribute, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT a.id, a.name, a.user_id, a.created_at, a.updated_at
		FROM %s a
		WHERE a.user_id = $1
		  AND (NOT $2::boolean OR EXISTS (
			SELECT 1 FROM %s j WHERE j.%s = a.id
		  ))
		ORDER BY a.name DESC, a.id DESC`,
		r.t.table, r.t.joinTable, r.t.joinColumn)

	rows, err := r.db.QueryContext(ctx, query, f.OwnerID, f.AssignedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attrs := make([]types.Attribute, 0)
	for rows.Next() {
		var attr types.Attribute
		if err := rows.Scan(&attr.ID, &attr.Name, &attr.UserID, &attr.CreatedAt, &attr.UpdatedAt); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (r *AttributeRepository) Create(ctx context.Context, attr types.Attribute) (types.Attribute, error) {
	now := time.Now()
	attr.CreatedAt = now
	attr.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, r.t.table)
	if err := r.db.QueryRowContext(ctx, query, attr.Name, attr.UserID, attr.CreatedAt, attr.UpdatedAt).Scan(&attr.ID); err != nil {
		return types.Attribute{}, translateError(err)
	}
	return attr, nil
}

// OwnedIDs returns the subset of ids that exist and belong to ownerID.
func (r *AttributeRepository) OwnedIDs(ctx context.Context, ownerID int, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 AND id = ANY($2::bigint[])`, r.t.table)
	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Int64Array(toInt64s(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned := make([]int, 0, len(ids))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned = append(owned, id)
	}
	return owned, rows.Err()
}

func toInt64s(ids []int) []int64 {
	if ids == nil {
		return nil
	}
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
