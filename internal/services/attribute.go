package services

import (
	"context"
	"strings"

	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/validation"
	"github.com/whiskeyshelf/apiserver/types"
)

// AttributeRepository defines persistence operations for one attribute
// kind (tags or places).
type AttributeRepository interface {
	Kind() types.AttributeKind
	List(ctx context.Context, f scope.AttributeFilter) ([]types.Attribute, error)
	Create(ctx context.Context, attr types.Attribute) (types.Attribute, error)
	OwnedIDs(ctx context.Context, ownerID int, ids []int) ([]int, error)
}

// AttributeInput is the payload accepted when creating a tag or place.
type AttributeInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// AttributeService encapsulates tag and place use-cases.
type AttributeService struct {
	repo     AttributeRepository
	validate *validation.Validator
}

func NewAttributeService(repo AttributeRepository) *AttributeService {
	return &AttributeService{repo: repo, validate: validation.New()}
}

func (s *AttributeService) Kind() types.AttributeKind {
	return s.repo.Kind()
}

func (s *AttributeService) List(ctx context.Context, f scope.AttributeFilter) ([]types.Attribute, error) {
	return s.repo.List(ctx, f)
}

// Create stores a new attribute owned by userID.
func (s *AttributeService) Create(ctx context.Context, userID int, in AttributeInput) (types.Attribute, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Validate(in); err != nil {
		return types.Attribute{}, asValidationError(err)
	}
	return s.repo.Create(ctx, types.Attribute{Name: in.Name, UserID: userID})
}
