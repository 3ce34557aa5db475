package service

import (
	"context"
	"strings"

	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

// CategoryInput describes a new category.
type CategoryInput struct {
	Title       string `form:"title" validate:"required,max=256"`
	Description string `form:"description"`
	Slug        string `form:"slug" validate:"required,slug"`
	IsPublished bool   `form:"is_published"`
}

// LocationInput describes a new location.
type LocationInput struct {
	Name        string `form:"name" validate:"required,max=256"`
	IsPublished bool   `form:"is_published"`
}

// CategoryService manages categories and locations. Posts reference both
// through the post form; publication is controlled from the operator CLI.
type CategoryService struct {
	categories repository.CategoryRepository
	locations  repository.LocationRepository
}

func NewCategoryService(categories repository.CategoryRepository, locations repository.LocationRepository) *CategoryService {
	return &CategoryService{categories: categories, locations: locations}
}

func (s *CategoryService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Locations(ctx context.Context) ([]models.Location, error) {
	return s.locations.List(ctx)
}

func (s *CategoryService) AddCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}
	category := &models.Category{
		Title:       in.Title,
		Description: in.Description,
		Slug:        in.Slug,
		IsPublished: in.IsPublished,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// SetCategoryPublished hides or shows a category and, with it, every post
// filed under it.
func (s *CategoryService) SetCategoryPublished(ctx context.Context, slug string, published bool) error {
	return s.categories.SetPublished(ctx, slug, published)
}

// DeleteCategory removes a category; its posts become uncategorized.
func (s *CategoryService) DeleteCategory(ctx context.Context, slug string) error {
	return s.categories.Delete(ctx, slug)
}

func (s *CategoryService) AddLocation(ctx context.Context, in LocationInput) (*models.Location, error) {
	in.Name = strings.TrimSpace(in.Name)
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}
	location := &models.Location{Name: in.Name, IsPublished: in.IsPublished}
	if err := s.locations.Create(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *CategoryService) SetLocationPublished(ctx context.Context, id uint, published bool) error {
	return s.locations.SetPublished(ctx, id, published)
}

// DeleteLocation removes a location; posts keep existing without one.
func (s *CategoryService) DeleteLocation(ctx context.Context, id uint) error {
	return s.locations.Delete(ctx, id)
}
