// Package scope narrows collections of user-owned records to what a single
// caller may see. The Postgres repositories express the same rules in SQL;
// the functions here operate on in-memory slices.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/whiskeyshelf/apiserver/types"
)

// ErrMalformedIdentifierList is returned when a comma separated id list
// contains a token that is not an integer.
var ErrMalformedIdentifierList = errors.New("malformed identifier list")

// AttributeFilter selects the tags or places visible to OwnerID.
type AttributeFilter struct {
	OwnerID int
	// AssignedOnly keeps only attributes referenced by at least one whiskey.
	AssignedOnly bool
}

// WhiskeyFilter selects the whiskeys visible to OwnerID. A nil id set
// means the corresponding narrowing is not applied.
type WhiskeyFilter struct {
	OwnerID  int
	TagIDs   []int
	PlaceIDs []int
}

// ParseIDs converts "1,2,3" into []int{1, 2, 3}. An empty string yields nil.
func ParseIDs(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedIdentifierList, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Attributes returns the records owned by the filter's owner, optionally
// restricted to those for which assigned reports true, de-duplicated by id
// and ordered by name descending (id descending on ties).
func Attributes(records []types.Attribute, f AttributeFilter, assigned func(id int) bool) []types.Attribute {
	seen := make(map[int]struct{}, len(records))
	out := make([]types.Attribute, 0, len(records))
	for _, rec := range records {
		if f.AssignedOnly && (assigned == nil || !assigned(rec.ID)) {
			continue
		}
		if rec.UserID != f.OwnerID {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Whiskeys returns the owner's whiskeys whose tags intersect f.TagIDs and
// whose places intersect f.PlaceIDs, newest first.
func Whiskeys(records []types.Whiskey, f WhiskeyFilter) []types.Whiskey {
	tagSet := toSet(f.TagIDs)
	placeSet := toSet(f.PlaceIDs)

	seen := make(map[int]struct{}, len(records))
	out := make([]types.Whiskey, 0, len(records))
	for _, w := range records {
		if tagSet != nil && !intersects(w.TagIDs(), tagSet) {
			continue
		}
		if placeSet != nil && !intersects(w.PlaceIDs(), placeSet) {
			continue
		}
		if w.UserID != f.OwnerID {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out
}

func toSet(ids []int) map[int]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func intersects(ids []int, set map[int]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
