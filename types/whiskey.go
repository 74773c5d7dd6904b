package types

import "time"

// Whiskey represents a catalogued bottle owned by a single user.
type Whiskey struct {
	// ID is the unique identifier of the whiskey.
	ID int `json:"id" db:"id"`

	// UserID identifies the owning account.
	UserID int `json:"-" db:"user_id"`

	// Brand is the distillery or brand name, e.g. "Lagavulin".
	Brand string `json:"brand" db:"brand"`

	// Style is the whiskey style, e.g. "Islay single malt".
	Style string `json:"style" db:"style"`

	// Year is the vintage or age statement, at most four characters.
	Year string `json:"year" db:"year"`

	// Price is a free-form price string, at most ten characters.
	Price string `json:"price" db:"price"`

	// Link is an optional external reference.
	Link string `json:"link" db:"link"`

	// Tags are the owner's tags assigned to this whiskey.
	Tags []Tag `json:"tags" db:"-"`

	// Places are the owner's places assigned to this whiskey.
	Places []Place `json:"places" db:"-"`

	// Image is the object storage key of the uploaded image, or empty.
	Image string `json:"image" db:"image"`

	// CreatedAt is the timestamp at which the whiskey was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the whiskey.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TagIDs returns the identifiers of the assigned tags.
func (w Whiskey) TagIDs() []int {
	return attributeIDs(w.Tags)
}

// PlaceIDs returns the identifiers of the assigned places.
func (w Whiskey) PlaceIDs() []int {
	return attributeIDs(w.Places)
}

func attributeIDs(attrs []Attribute) []int {
	ids := make([]int, 0, len(attrs))
	for _, attr := range attrs {
		ids = append(ids, attr.ID)
	}
	return ids
}
