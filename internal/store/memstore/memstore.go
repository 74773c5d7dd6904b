// Package memstore is an in-process implementation of the repositories,
// selected with STORE_BACKEND=memory. Data is lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/store"
	"github.com/whiskeyshelf/apiserver/types"
)

type whiskeyRow struct {
	whiskey  types.Whiskey
	tagIDs   []int
	placeIDs []int
}

// Store holds every table behind a single lock.
type Store struct {
	mu       sync.RWMutex
	seq      map[string]int
	users    map[int]types.User
	attrs    map[types.AttributeKind]map[int]types.Attribute
	whiskeys map[int]whiskeyRow
}

func New() *Store {
	return &Store{
		seq:   make(map[string]int),
		users: make(map[int]types.User),
		attrs: map[types.AttributeKind]map[int]types.Attribute{
			types.KindTag:   make(map[int]types.Attribute),
			types.KindPlace: make(map[int]types.Attribute),
		},
		whiskeys: make(map[int]whiskeyRow),
	}
}

func (s *Store) nextID(table string) int {
	s.seq[table]++
	return s.seq[table]
}

// Users returns a user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Tags returns a tag repository view.
func (s *Store) Tags() *AttributeRepository {
	return &AttributeRepository{s: s, kind: types.KindTag}
}

// Places returns a place repository view.
func (s *Store) Places() *AttributeRepository {
	return &AttributeRepository{s: s, kind: types.KindPlace}
}

// Whiskeys returns a whiskey repository view.
func (s *Store) Whiskeys() *WhiskeyRepository { return &WhiskeyRepository{s: s} }

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}

	now := time.Now()
	user.ID = r.s.nextID("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range r.s.users {
		if id != user.ID && existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = user
	return user, nil
}

type AttributeRepository struct {
	s    *Store
	kind types.AttributeKind
}

func (r *AttributeRepository) Kind() types.AttributeKind {
	return r.kind
}

func (r *AttributeRepository) List(_ context.Context, f scope.AttributeFilter) ([]types.Attribute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	assigned := make(map[int]struct{})
	for _, row := range r.s.whiskeys {
		for _, id := range r.s.assignedIDs(row, r.kind) {
			assigned[id] = struct{}{}
		}
	}

	table := r.s.attrs[r.kind]
	records := make([]types.Attribute, 0, len(table))
	for _, attr := range table {
		records = append(records, attr)
	}

	return scope.Attributes(records, f, func(id int) bool {
		_, ok := assigned[id]
		return ok
	}), nil
}

func (r *AttributeRepository) Create(_ context.Context, attr types.Attribute) (types.Attribute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	attr.ID = r.s.nextID(string(r.kind))
	attr.CreatedAt = now
	attr.UpdatedAt = now
	r.s.attrs[r.kind][attr.ID] = attr
	return attr, nil
}

func (r *AttributeRepository) OwnedIDs(_ context.Context, ownerID int, ids []int) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	table := r.s.attrs[r.kind]
	owned := make([]int, 0, len(ids))
	for _, id := range ids {
		if attr, ok := table[id]; ok && attr.UserID == ownerID {
			owned = append(owned, id)
		}
	}
	return owned, nil
}

type WhiskeyRepository struct {
	s *Store
}

func (r *WhiskeyRepository) List(_ context.Context, f scope.WhiskeyFilter) ([]types.Whiskey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	records := make([]types.Whiskey, 0, len(r.s.whiskeys))
	for _, row := range r.s.whiskeys {
		records = append(records, r.s.resolve(row))
	}
	return scope.Whiskeys(records, f), nil
}

func (r *WhiskeyRepository) Get(_ context.Context, ownerID, id int) (types.Whiskey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.whiskeys[id]
	if !ok || row.whiskey.UserID != ownerID {
		return types.Whiskey{}, store.ErrNotFound
	}
	return r.s.resolve(row), nil
}

func (r *WhiskeyRepository) Create(_ context.Context, w types.Whiskey) (types.Whiskey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	w.ID = r.s.nextID("whiskeys")
	w.CreatedAt = now
	w.UpdatedAt = now
	row := whiskeyRow{whiskey: w, tagIDs: uniqueSorted(w.TagIDs()), placeIDs: uniqueSorted(w.PlaceIDs())}
	r.s.whiskeys[w.ID] = row
	return r.s.resolve(row), nil
}

func (r *WhiskeyRepository) Update(_ context.Context, w types.Whiskey) (types.Whiskey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.whiskeys[w.ID]
	if !ok || current.whiskey.UserID != w.UserID {
		return types.Whiskey{}, store.ErrNotFound
	}

	w.Image = current.whiskey.Image
	w.CreatedAt = current.whiskey.CreatedAt
	w.UpdatedAt = time.Now()
	row := whiskeyRow{whiskey: w, tagIDs: uniqueSorted(w.TagIDs()), placeIDs: uniqueSorted(w.PlaceIDs())}
	r.s.whiskeys[w.ID] = row
	return r.s.resolve(row), nil
}

func (r *WhiskeyRepository) SetImage(_ context.Context, ownerID, id int, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.whiskeys[id]
	if !ok || row.whiskey.UserID != ownerID {
		return "", store.ErrNotFound
	}
	previous := row.whiskey.Image
	row.whiskey.Image = key
	row.whiskey.UpdatedAt = time.Now()
	r.s.whiskeys[id] = row
	return previous, nil
}

func (r *WhiskeyRepository) Delete(_ context.Context, ownerID, id int) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.whiskeys[id]
	if !ok || row.whiskey.UserID != ownerID {
		return "", store.ErrNotFound
	}
	delete(r.s.whiskeys, id)
	return row.whiskey.Image, nil
}

// resolve expands stored ids into attributes, dropping ids whose records
// no longer exist. Callers must hold s.mu.
func (s *Store) resolve(row whiskeyRow) types.Whiskey {
	w := row.whiskey
	w.Tags = s.lookup(types.KindTag, row.tagIDs)
	w.Places = s.lookup(types.KindPlace, row.placeIDs)
	return w
}

func (s *Store) lookup(kind types.AttributeKind, ids []int) []types.Attribute {
	out := make([]types.Attribute, 0, len(ids))
	for _, id := range ids {
		if attr, ok := s.attrs[kind][id]; ok {
			out = append(out, attr)
		}
	}
	return out
}

func (s *Store) assignedIDs(row whiskeyRow, kind types.AttributeKind) []int {
	if kind == types.KindTag {
		return row.tagIDs
	}
	return row.placeIDs
}

func uniqueSorted(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
