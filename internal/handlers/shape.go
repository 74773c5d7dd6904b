package handlers

import "github.com/whiskeyshelf/apiserver/types"

// Shape selects how a whiskey is rendered in a response.
type Shape int

const (
	// ShapeList renders scalar fields with tag and place ids.
	ShapeList Shape = iota
	// ShapeDetail renders scalar fields, nested tags and places, and the image.
	ShapeDetail
	// ShapeImage renders only the id and image.
	ShapeImage
)

type attributeRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type whiskeyListItem struct {
	ID     int    `json:"id"`
	Brand  string `json:"brand"`
	Style  string `json:"style"`
	Year   string `json:"year"`
	Price  string `json:"price"`
	Link   string `json:"link"`
	Tags   []int  `json:"tags"`
	Places []int  `json:"places"`
}

type whiskeyDetail struct {
	ID     int            `json:"id"`
	Brand  string         `json:"brand"`
	Style  string         `json:"style"`
	Year   string         `json:"year"`
	Price  string         `json:"price"`
	Link   string         `json:"link"`
	Tags   []attributeRef `json:"tags"`
	Places []attributeRef `json:"places"`
	Image  string         `json:"image"`
}

type whiskeyImage struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

func renderWhiskey(shape Shape, w types.Whiskey) any {
	switch shape {
	case ShapeDetail:
		return whiskeyDetail{
			ID:     w.ID,
			Brand:  w.Brand,
			Style:  w.Style,
			Year:   w.Year,
			Price:  w.Price,
			Link:   w.Link,
			Tags:   attributeRefs(w.Tags),
			Places: attributeRefs(w.Places),
			Image:  w.Image,
		}
	case ShapeImage:
		return whiskeyImage{ID: w.ID, Image: w.Image}
	default:
		return whiskeyListItem{
			ID:     w.ID,
			Brand:  w.Brand,
			Style:  w.Style,
			Year:   w.Year,
			Price:  w.Price,
			Link:   w.Link,
			Tags:   w.TagIDs(),
			Places: w.PlaceIDs(),
		}
	}
}

func renderWhiskeys(shape Shape, list []types.Whiskey) []any {
	out := make([]any, 0, len(list))
	for _, w := range list {
		out = append(out, renderWhiskey(shape, w))
	}
	return out
}

func attributeRefs(attrs []types.Attribute) []attributeRef {
	out := make([]attributeRef, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, attributeRef{ID: a.ID, Name: a.Name})
	}
	return out
}
