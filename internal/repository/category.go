package repository

import (
	"context"

	"blogicum/internal/cache"
	"blogicum/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	// GetBySlug is cache-backed and returns unpublished categories too.
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	SetPublished(ctx context.Context, slug string, published bool) error
	Delete(ctx context.Context, slug string) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := cache.Aside(ctx, cache.CategoryKey(slug), &category, cache.CategoryTTL, func() error {
		return translate(r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error, "Category", slug)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("title ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("slug", "A category with that slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.Slug)
	return nil
}

func (r *categoryRepository) SetPublished(ctx context.Context, slug string, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", slug)
	}
	cache.InvalidateCategory(ctx, slug)
	return nil
}

// Delete removes the category; its posts keep existing with no category.
func (r *categoryRepository) Delete(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Category{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", slug)
	}
	cache.InvalidateCategory(ctx, slug)
	return nil
}

// LocationRepository defines persistence operations for locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Location, error)
	List(ctx context.Context) ([]models.Location, error)
	Create(ctx context.Context, location *models.Location) error
	SetPublished(ctx context.Context, id uint, published bool) error
	Delete(ctx context.Context, id uint) error
}

type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository returns a new LocationRepository implementation.
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, id).Error; err != nil {
		return nil, translate(err, "Location", id)
	}
	return &location, nil
}

func (r *locationRepository) List(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&locations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return locations, nil
}

func (r *locationRepository) Create(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *locationRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Location", id)
	}
	return nil
}

// Delete removes the location; posts referring to it keep existing.
func (r *locationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Location{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Location", id)
	}
	return nil
}
