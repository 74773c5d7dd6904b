package types

import "time"

// AttributeKind selects which family of attributes a value belongs to.
type AttributeKind string

const (
	KindTag   AttributeKind = "tag"
	KindPlace AttributeKind = "place"
)

// Attribute is a named, user-owned label that whiskeys can reference.
// Tags and places share this shape and differ only in the relation
// they are stored under.
type Attribute struct {
	// ID is the unique identifier of the attribute within its kind.
	ID int `json:"id" db:"id"`

	// Name is the free-text label shown to the owner.
	Name string `json:"name" db:"name"`

	// UserID identifies the owning account. It is always taken from the
	// authenticated caller, never from a request payload.
	UserID int `json:"-" db:"user_id"`

	// CreatedAt is the timestamp at which the attribute was created.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the attribute.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// Tag is a flavour or style label, e.g. "Smoky".
type Tag = Attribute

// Place is where a whiskey was bought or tasted.
type Place = Attribute
