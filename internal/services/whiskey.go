package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/whiskeyshelf/apiserver/internal/mq"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/storage"
	"github.com/whiskeyshelf/apiserver/internal/validation"
	"github.com/whiskeyshelf/apiserver/types"
	_ "golang.org/x/image/webp"
)

// WhiskeyRepository defines persistence operations for whiskeys. Every
// call is scoped to an owner; records of other owners behave as missing.
type WhiskeyRepository interface {
	List(ctx context.Context, f scope.WhiskeyFilter) ([]types.Whiskey, error)
	Get(ctx context.Context, ownerID, id int) (types.Whiskey, error)
	Create(ctx context.Context, w types.Whiskey) (types.Whiskey, error)
	Update(ctx context.Context, w types.Whiskey) (types.Whiskey, error)
	SetImage(ctx context.Context, ownerID, id int, key string) (string, error)
	Delete(ctx context.Context, ownerID, id int) (string, error)
}

// ImageStore is the subset of object storage used for whiskey images.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes JSON events to a broker channel.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// WhiskeyInput is the full set of writable whiskey fields.
type WhiskeyInput struct {
	Brand  string `json:"brand" validate:"required,max=255"`
	Style  string `json:"style" validate:"required,max=255"`
	Year   string `json:"year" validate:"max=4"`
	Price  string `json:"price" validate:"max=10"`
	Link   string `json:"link" validate:"max=255"`
	Tags   []int  `json:"tags"`
	Places []int  `json:"places"`
}

// WhiskeyPatch carries a partial update. Nil fields keep their value.
type WhiskeyPatch struct {
	Brand  *string `json:"brand"`
	Style  *string `json:"style"`
	Year   *string `json:"year"`
	Price  *string `json:"price"`
	Link   *string `json:"link"`
	Tags   *[]int  `json:"tags"`
	Places *[]int  `json:"places"`
}

// WhiskeyService encapsulates whiskey use-cases.
type WhiskeyService struct {
	repo     WhiskeyRepository
	tags     AttributeRepository
	places   AttributeRepository
	images   ImageStore
	events   EventPublisher
	validate *validation.Validator
}

// NewWhiskeyService wires the service. events may be nil, in which case
// unreferenced images are deleted inline.
func NewWhiskeyService(repo WhiskeyRepository, tags, places AttributeRepository, images ImageStore, events EventPublisher) *WhiskeyService {
	return &WhiskeyService{
		repo:     repo,
		tags:     tags,
		places:   places,
		images:   images,
		events:   events,
		validate: validation.New(),
	}
}

func (s *WhiskeyService) List(ctx context.Context, f scope.WhiskeyFilter) ([]types.Whiskey, error) {
	return s.repo.List(ctx, f)
}

func (s *WhiskeyService) Get(ctx context.Context, userID, id int) (types.Whiskey, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create stores a whiskey owned by userID.
func (s *WhiskeyService) Create(ctx context.Context, userID int, in WhiskeyInput) (types.Whiskey, error) {
	w, err := s.build(ctx, userID, in)
	if err != nil {
		return types.Whiskey{}, err
	}
	return s.repo.Create(ctx, w)
}

// Update replaces every writable field of an owned whiskey.
func (s *WhiskeyService) Update(ctx context.Context, userID, id int, in WhiskeyInput) (types.Whiskey, error) {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return types.Whiskey{}, err
	}
	w, err := s.build(ctx, userID, in)
	if err != nil {
		return types.Whiskey{}, err
	}
	w.ID = id
	return s.repo.Update(ctx, w)
}

// Patch applies the supplied fields on top of the stored whiskey.
func (s *WhiskeyService) Patch(ctx context.Context, userID, id int, p WhiskeyPatch) (types.Whiskey, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Whiskey{}, err
	}

	in := WhiskeyInput{
		Brand:  current.Brand,
		Style:  current.Style,
		Year:   current.Year,
		Price:  current.Price,
		Link:   current.Link,
		Tags:   current.TagIDs(),
		Places: current.PlaceIDs(),
	}
	applyString(&in.Brand, p.Brand)
	applyString(&in.Style, p.Style)
	applyString(&in.Year, p.Year)
	applyString(&in.Price, p.Price)
	applyString(&in.Link, p.Link)
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Places != nil {
		in.Places = *p.Places
	}

	w, err := s.build(ctx, userID, in)
	if err != nil {
		return types.Whiskey{}, err
	}
	w.ID = id
	return s.repo.Update(ctx, w)
}

// Delete removes an owned whiskey and releases its image.
func (s *WhiskeyService) Delete(ctx context.Context, userID, id int) error {
	image, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	s.releaseImage(ctx, userID, id, image)
	return nil
}

// UploadImage validates data as an image, stores it under a fresh key and
// points the whiskey at it. The previously stored image is released.
func (s *WhiskeyService) UploadImage(ctx context.Context, userID, id int, filename string, data []byte) (types.Whiskey, error) {
	w, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Whiskey{}, err
	}

	if len(data) == 0 {
		return types.Whiskey{}, NewValidationError("image", "no file was submitted")
	}
	// A full decode rejects truncated files whose header is intact.
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return types.Whiskey{}, NewValidationError("image", "upload a valid image; the file is either not an image or corrupted")
	}

	key := storage.WhiskeyImageKey(filename, format)
	if err := s.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/"+format); err != nil {
		return types.Whiskey{}, fmt.Errorf("store image: %w", err)
	}

	previous, err := s.repo.SetImage(ctx, userID, id, key)
	if err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to remove orphaned image", "key", key, "error", delErr)
		}
		return types.Whiskey{}, err
	}
	s.releaseImage(ctx, userID, id, previous)

	w.Image = key
	return w, nil
}

// releaseImage hands an unreferenced key to the cleanup worker, or deletes
// it directly when no broker is configured. Failures are logged only.
func (s *WhiskeyService) releaseImage(ctx context.Context, userID, whiskeyID int, key string) {
	if key == "" {
		return
	}
	if s.events != nil {
		_, err := s.events.PublishJSON(ctx, mq.ChannelImageReplaced, mq.ImageReplaced{
			WhiskeyID: whiskeyID,
			UserID:    userID,
			ObjectKey: key,
		})
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "failed to publish image release, deleting inline", "key", key, "error", err)
	}
	if err := s.images.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete image", "key", key, "error", err)
	}
}

func (s *WhiskeyService) build(ctx context.Context, userID int, in WhiskeyInput) (types.Whiskey, error) {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Style = strings.TrimSpace(in.Style)
	in.Year = strings.TrimSpace(in.Year)
	in.Price = strings.TrimSpace(in.Price)
	in.Link = strings.TrimSpace(in.Link)

	fields := map[string]string{}
	if err := s.validate.Validate(in); err != nil {
		verr, ok := asValidationError(err).(*ValidationError)
		if !ok {
			return types.Whiskey{}, err
		}
		fields = verr.Fields
	}

	tagIDs, err := s.checkOwned(ctx, s.tags, userID, in.Tags)
	if err != nil {
		return types.Whiskey{}, err
	}
	if tagIDs == nil {
		fields["tags"] = "contains ids that do not exist"
	}
	placeIDs, err := s.checkOwned(ctx, s.places, userID, in.Places)
	if err != nil {
		return types.Whiskey{}, err
	}
	if placeIDs == nil {
		fields["places"] = "contains ids that do not exist"
	}
	if len(fields) > 0 {
		return types.Whiskey{}, &ValidationError{Fields: fields}
	}

	w := types.Whiskey{
		UserID: userID,
		Brand:  in.Brand,
		Style:  in.Style,
		Year:   in.Year,
		Price:  in.Price,
		Link:   in.Link,
		Tags:   make([]types.Tag, 0, len(tagIDs)),
		Places: make([]types.Place, 0, len(placeIDs)),
	}
	for _, id := range tagIDs {
		w.Tags = append(w.Tags, types.Tag{ID: id})
	}
	for _, id := range placeIDs {
		w.Places = append(w.Places, types.Place{ID: id})
	}
	return w, nil
}

// checkOwned returns the de-duplicated ids, or nil when any of them does
// not exist or belongs to another user.
func (s *WhiskeyService) checkOwned(ctx context.Context, repo AttributeRepository, userID int, ids []int) ([]int, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return unique, nil
	}
	owned, err := repo.OwnedIDs(ctx, userID, unique)
	if err != nil {
		return nil, fmt.Errorf("check %s ownership: %w", repo.Kind(), err)
	}
	if len(owned) != len(unique) {
		return nil, nil
	}
	return unique, nil
}

func uniqueIDs(ids []int) []int {
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

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
