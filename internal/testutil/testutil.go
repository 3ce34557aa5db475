// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"blogicum/internal/database"
	"blogicum/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory SQLite database with foreign keys
// on and the full schema migrated.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	cfg := database.GormConfig()
	cfg.Logger = logger.Discard

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user whose email derives from username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateCategory inserts a category with the given publication state.
func CreateCategory(t testing.TB, db *gorm.DB, slug string, published bool) *models.Category {
	t.Helper()
	c := &models.Category{Title: "Category " + slug, Slug: slug, IsPublished: published}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateLocation inserts a published location.
func CreateLocation(t testing.TB, db *gorm.DB, name string) *models.Location {
	t.Helper()
	l := &models.Location{Name: name, IsPublished: true}
	require.NoError(t, db.Create(l).Error)
	return l
}

// PostOption customises CreatePost.
type PostOption func(*models.Post)

// Unpublished marks the post as hidden by its author.
func Unpublished() PostOption {
	return func(p *models.Post) { p.IsPublished = false }
}

// PublishedAt sets the publication date.
func PublishedAt(at time.Time) PostOption {
	return func(p *models.Post) { p.PubDate = at.UTC() }
}

// InCategory attaches the post to c.
func InCategory(c *models.Category) PostOption {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

// AtLocation attaches the post to l.
func AtLocation(l *models.Location) PostOption {
	return func(p *models.Post) { p.LocationID = &l.ID }
}

// CreatePost inserts a live post by author, published an hour ago unless
// options say otherwise.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string, opts ...PostOption) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       title,
		Text:        "Text of " + title,
		PubDate:     time.Now().UTC().Add(-time.Hour),
		IsPublished: true,
		AuthorID:    author.ID,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a comment by author on post.
func CreateComment(t testing.TB, db *gorm.DB, author *models.User, post *models.Post, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{Text: text, AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, db.Create(c).Error)
	return c
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
