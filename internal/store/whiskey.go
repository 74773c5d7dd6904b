package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/types"
)

const whiskeyColumns = `w.id, w.user_id, w.brand, w.style, w.year, w.price, w.link, w.image, w.created_at, w.updated_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// WhiskeyRepository handles persistence for whiskeys and their tag and
// place assignments.
type WhiskeyRepository struct {
	db *sql.DB
}

func NewWhiskeyRepository(db *sql.DB) *WhiskeyRepository {
	return &WhiskeyRepository{db: db}
}

func scanWhiskey(row interface{ Scan(...any) error }) (types.Whiskey, error) {
	var w types.Whiskey
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Brand,
		&w.Style,
		&w.Year,
		&w.Price,
		&w.Link,
		&w.Image,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

// List returns the owner's whiskeys, narrowed to those sharing at least one
// tag with f.TagIDs and one place with f.PlaceIDs when those sets are given.
func (r *WhiskeyRepository) List(ctx context.Context, f scope.WhiskeyFilter) ([]types.Whiskey, error) {
	query := `
		SELECT ` + whiskeyColumns + `
		FROM whiskeys w
		WHERE w.user_id = $1
		  AND ($2::bigint[] IS NULL OR EXISTS (
			SELECT 1 FROM whiskey_tags wt WHERE wt.whiskey_id = w.id AND wt.tag_id = ANY($2::bigint[])
		  ))
		  AND ($3::bigint[] IS NULL OR EXISTS (
			SELECT 1 FROM whiskey_places wp WHERE wp.whiskey_id = w.id AND wp.place_id = ANY($3::bigint[])
		  ))
		ORDER BY w.id DESC`

	rows, err := r.db.QueryContext(ctx, query,
		f.OwnerID,
		pq.Int64Array(toInt64s(f.TagIDs)),
		pq.Int64Array(toInt64s(f.PlaceIDs)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	whiskeys := make([]types.Whiskey, 0)
	for rows.Next() {
		w, err := scanWhiskey(rows)
		if err != nil {
			return nil, err
		}
		whiskeys = append(whiskeys, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadAttributes(ctx, r.db, whiskeys); err != nil {
		return nil, err
	}
	return whiskeys, nil
}

// Get returns the whiskey with the given id if it is owned by ownerID.
func (r *WhiskeyRepository) Get(ctx context.Context, ownerID, id int) (types.Whiskey, error) {
	query := `SELECT ` + whiskeyColumns + ` FROM whiskeys w WHERE w.id = $1 AND w.user_id = $2`
	w, err := scanWhiskey(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Whiskey{}, ErrNotFound
		}
		return types.Whiskey{}, err
	}

	list := []types.Whiskey{w}
	if err := r.loadAttributes(ctx, r.db, list); err != nil {
		return types.Whiskey{}, err
	}
	return list[0], nil
}

// Create inserts a whiskey and its assignments. Tag and place ids must
// already be validated as owned by w.UserID.
func (r *WhiskeyRepository) Create(ctx context.Context, w types.Whiskey) (types.Whiskey, error) {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO whiskeys (user_id, brand, style, year, price, link, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, query,
			w.UserID,
			w.Brand,
			w.Style,
			w.Year,
			w.Price,
			w.Link,
			w.Image,
			w.CreatedAt,
			w.UpdatedAt,
		).Scan(&w.ID); err != nil {
			return err
		}
		return replaceAssignments(ctx, tx, w)
	})
	if err != nil {
		return types.Whiskey{}, err
	}
	return r.Get(ctx, w.UserID, w.ID)
}

// Update overwrites the scalar fields and assignments of an owned whiskey.
// The image key is left untouched; use SetImage for that.
func (r *WhiskeyRepository) Update(ctx context.Context, w types.Whiskey) (types.Whiskey, error) {
	w.UpdatedAt = time.Now()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
			UPDATE whiskeys
			SET brand = $1,
				style = $2,
				year = $3,
				price = $4,
				link = $5,
				updated_at = $6
			WHERE id = $7 AND user_id = $8`
		result, err := tx.ExecContext(ctx, query,
			w.Brand,
			w.Style,
			w.Year,
			w.Price,
			w.Link,
			w.UpdatedAt,
			w.ID,
			w.UserID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return replaceAssignments(ctx, tx, w)
	})
	if err != nil {
		return types.Whiskey{}, err
	}
	return r.Get(ctx, w.UserID, w.ID)
}

// SetImage stores a new image key and returns the key it replaced.
func (r *WhiskeyRepository) SetImage(ctx context.Context, ownerID, id int, key string) (string, error) {
	var previous string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		const selectQuery = `SELECT image FROM whiskeys WHERE id = $1 AND user_id = $2 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, selectQuery, id, ownerID).Scan(&previous); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const updateQuery = `UPDATE whiskeys SET image = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
		_, err := tx.ExecContext(ctx, updateQuery, key, time.Now(), id, ownerID)
		return err
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// Delete removes an owned whiskey and returns its image key, if any.
func (r *WhiskeyRepository) Delete(ctx context.Context, ownerID, id int) (string, error) {
	const query = `DELETE FROM whiskeys WHERE id = $1 AND user_id = $2 RETURNING image`
	var image string
	if err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return image, nil
}

func (r *WhiskeyRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceAssignments(ctx context.Context, tx *sql.Tx, w types.Whiskey) error {
	for _, rel := range []struct {
		table  string
		column string
		ids    []int
	}{
		{table: "whiskey_tags", column: "tag_id", ids: w.TagIDs()},
		{table: "whiskey_places", column: "place_id", ids: w.PlaceIDs()},
	} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE whiskey_id = $1`, rel.table), w.ID); err != nil {
			return err
		}
		if len(rel.ids) == 0 {
			continue
		}
		query := fmt.Sprintf(`
			INSERT INTO %s (whiskey_id, %s)
			SELECT $1::integer, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`, rel.table, rel.column)
		if _, err := tx.ExecContext(ctx, query, w.ID, pq.Int64Array(toInt64s(rel.ids))); err != nil {
			return err
		}
	}
	return nil
}

// loadAttributes fills Tags and Places for every whiskey in place.
func (r *WhiskeyRepository) loadAttributes(ctx context.Context, q queryer, whiskeys []types.Whiskey) error {
	if len(whiskeys) == 0 {
		return nil
	}

	index := make(map[int]int, len(whiskeys))
	ids := make([]int64, 0, len(whiskeys))
	for i := range whiskeys {
		whiskeys[i].Tags = []types.Tag{}
		whiskeys[i].Places = []types.Place{}
		index[whiskeys[i].ID] = i
		ids = append(ids, int64(whiskeys[i].ID))
	}

	for _, kind := range []types.AttributeKind{types.KindTag, types.KindPlace} {
		t := attributeTables[kind]
		query := fmt.Sprintf(`
			SELECT j.whiskey_id, a.id, a.name, a.user_id, a.created_at, a.updated_at
			FROM %s j
			JOIN %s a ON a.id = j.%s
			WHERE j.whiskey_id = ANY($1::bigint[])
			ORDER BY a.id`, t.joinTable, t.table, t.joinColumn)

		rows, err := q.QueryContext(ctx, query, pq.Int64Array(ids))
		if err != nil {
			return err
		}
		for rows.Next() {
			var whiskeyID int
			var attr types.Attribute
			if err := rows.Scan(&whiskeyID, &attr.ID, &attr.Name, &attr.UserID, &attr.CreatedAt, &attr.UpdatedAt); err != nil {
				_ = rows.Close()
				return err
			}
			i := index[whiskeyID]
			if kind == types.KindTag {
				whiskeys[i].Tags = append(whiskeys[i].Tags, attr)
			} else {
				whiskeys[i].Places = append(whiskeys[i].Places, attr)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
	}
	return nil
}
