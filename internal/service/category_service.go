package service

import (
	"context"
	"strings"
	"time"

	"marketflow/internal/models"
	"marketflow/internal/store"
	"marketflow/internal/util"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// CategoryService is the mock category API over the category table
type CategoryService struct {
	categories *store.Table[models.Category]
	latency    Latency
	logger     *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(s *store.Store, latency Latency) *CategoryService {
	return &CategoryService{
		categories: s.Categories,
		latency:    latency,
		logger:     util.GetLogger(),
	}
}

// CategoryInput is the payload for creating a category
type CategoryInput struct {
	Name     string `json:"name" validate:"required"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parentId"`
}

// CategoryUpdate carries the fields to change. MakeRoot detaches the category
// from its parent and wins over ParentID.
type CategoryUpdate struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	ParentID *int64  `json:"parentId"`
	MakeRoot bool    `json:"makeRoot"`
}

// GetAll returns every category
func (s *CategoryService) GetAll(ctx context.Context) (categories []models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "GetAll")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}
	return s.categories.All(), nil
}

// GetByID returns one category
func (s *CategoryService) GetByID(ctx context.Context, id int64) (category models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "GetByID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 150*time.Millisecond); err != nil {
		return models.Category{}, err
	}
	return s.categories.Get(id)
}

// Create stores a new category, deriving its slug from the name when none is given
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (category models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "Create")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return models.Category{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err = validateStruct(in); err != nil {
		return models.Category{}, err
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}

	category, err = s.categories.Insert(models.Category{
		Name:     in.Name,
		Slug:     in.Slug,
		ParentID: in.ParentID,
	}, nil)
	if err != nil {
		return models.Category{}, err
	}

	s.logger.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("slug", category.Slug))
	return category, nil
}

// Update merges u onto the category. A rename without an explicit slug
// regenerates the slug.
func (s *CategoryService) Update(ctx context.Context, id int64, u CategoryUpdate) (category models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "Update")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return models.Category{}, err
	}

	return s.categories.Update(id, func(cur models.Category, _ []models.Category) (models.Category, error) {
		if u.Name != nil {
			name := strings.TrimSpace(*u.Name)
			if name == "" {
				return cur, validationErrorf("name is required")
			}
			cur.Name = name
			if u.Slug == nil {
				cur.Slug = slug.Make(name)
			}
		}
		if u.Slug != nil {
			cur.Slug = *u.Slug
		}
		switch {
		case u.MakeRoot:
			cur.ParentID = nil
		case u.ParentID != nil:
			if *u.ParentID == id {
				return cur, validationErrorf("category cannot be its own parent")
			}
			parent := *u.ParentID
			cur.ParentID = &parent
		}
		return cur, nil
	})
}

// Delete removes a category. A category that still has subcategories cannot
// be deleted; products in it are left untouched.
func (s *CategoryService) Delete(ctx context.Context, id int64) (category models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "Delete")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return models.Category{}, err
	}

	category, err = s.categories.Delete(id, func(_ models.Category, existing []models.Category) error {
		for _, other := range existing {
			if other.ParentID != nil && *other.ParentID == id {
				return conflictErrorf("Cannot delete category that has subcategories")
			}
		}
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}

	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return category, nil
}

// GetRootCategories returns the categories without a parent
func (s *CategoryService) GetRootCategories(ctx context.Context) (categories []models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "GetRootCategories")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 150*time.Millisecond); err != nil {
		return nil, err
	}
	return s.categories.Filter(models.Category.IsRoot), nil
}

// GetSubcategories returns the direct children of parentID
func (s *CategoryService) GetSubcategories(ctx context.Context, parentID int64) (categories []models.Category, err error) {
	ctx, c := startCall(ctx, "CategoryService", "GetSubcategories")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 150*time.Millisecond); err != nil {
		return nil, err
	}
	return s.categories.Filter(func(cat models.Category) bool {
		return cat.ParentID != nil && *cat.ParentID == parentID
	}), nil
}

// Tree returns the category forest in depth-first order
func (s *CategoryService) Tree(ctx context.Context) (tree []*TreeNode, err error) {
	ctx, c := startCall(ctx, "CategoryService", "Tree")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}
	return BuildTree(s.categories.All()), nil
}
