package database

import "blogicum/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Location{},
		&models.Post{},
		&models.Comment{},
	}
}
