package database

import (
	"testing"

	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_CoversBlogEntities(t *testing.T) {
	var hasPost, hasComment, hasCategory bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Post:
			hasPost = true
		case *models.Comment:
			hasComment = true
		case *models.Category:
			hasCategory = true
		}
	}
	assert.True(t, hasPost)
	assert.True(t, hasComment)
	assert.True(t, hasCategory)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)

	first := all[0]
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "000001_init", first.String())
	assert.Contains(t, first.UpScript, "ON DELETE CASCADE")
	assert.Contains(t, first.UpScript, "ON DELETE SET NULL")
	assert.Contains(t, first.DownScript, "DROP TABLE IF EXISTS posts")
}
