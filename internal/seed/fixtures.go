package seed

import (
	_ "embed"
	"fmt"

	"blogicum/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/blog.yml
var builtInFixtures []byte

// CategoryFixture describes a category loaded from YAML.
type CategoryFixture struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Published   bool   `yaml:"published"`
}

// LocationFixture describes a location loaded from YAML.
type LocationFixture struct {
	Name      string `yaml:"name"`
	Published bool   `yaml:"published"`
}

// FixtureSet is the taxonomy every demo database starts with.
type FixtureSet struct {
	Categories []CategoryFixture `yaml:"categories"`
	Locations  []LocationFixture `yaml:"locations"`
}

// ParseFixtures decodes a YAML fixture document.
func ParseFixtures(data []byte) (*FixtureSet, error) {
	var set FixtureSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, c := range set.Categories {
		if c.Slug == "" || c.Title == "" {
			return nil, fmt.Errorf("category fixture %d: slug and title are required", i)
		}
	}
	for i, l := range set.Locations {
		if l.Name == "" {
			return nil, fmt.Errorf("location fixture %d: name is required", i)
		}
	}
	return &set, nil
}

// BuiltInFixtures returns the embedded fixture set.
func BuiltInFixtures() (*FixtureSet, error) {
	return ParseFixtures(builtInFixtures)
}

// LoadFixtures upserts categories by slug and locations by name. Running it
// twice leaves the database unchanged.
func LoadFixtures(db *gorm.DB, set *FixtureSet) ([]models.Category, []models.Location, error) {
	categories := make([]models.Category, 0, len(set.Categories))
	locations := make([]models.Location, 0, len(set.Locations))

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, item := range set.Categories {
			category := models.Category{
				Title:       item.Title,
				Description: item.Description,
				Slug:        item.Slug,
				IsPublished: item.Published,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "description", "is_published"}),
			}).Create(&category).Error; err != nil {
				return fmt.Errorf("category %s: %w", item.Slug, err)
			}
			// The upsert may not report the id of an existing row.
			if err := tx.Where("slug = ?", item.Slug).First(&category).Error; err != nil {
				return fmt.Errorf("category %s: %w", item.Slug, err)
			}
			categories = append(categories, category)
		}

		for _, item := range set.Locations {
			var location models.Location
			if err := tx.Where(models.Location{Name: item.Name}).
				Attrs(models.Location{IsPublished: item.Published}).
				FirstOrCreate(&location).Error; err != nil {
				return fmt.Errorf("location %s: %w", item.Name, err)
			}
			if location.IsPublished != item.Published {
				if err := tx.Model(&location).Update("is_published", item.Published).Error; err != nil {
					return fmt.Errorf("location %s: %w", item.Name, err)
				}
			}
			locations = append(locations, location)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return categories, locations, nil
}
