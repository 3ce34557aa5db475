package repository

import (
	"context"
	"time"

	"blogicum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// commentsCountColumn annotates each post with its comment count in the same
// statement as the page query.
const commentsCountColumn = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// FeedQuery selects the posts of one feed.
type FeedQuery struct {
	CategoryID *uint
	AuthorID   *uint
	// LiveOnly restricts the feed to published, due posts whose category
	// is absent or published.
	LiveOnly bool
	Now      time.Time
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the post with author, category and location loaded,
	// whatever its visibility.
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	CountFeed(ctx context.Context, q FeedQuery) (int64, error)
	ListFeed(ctx context.Context, q FeedQuery, limit, offset int) ([]models.Post, error)
	SetPublished(ctx context.Context, ids []uint, published bool) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// LiveScope keeps posts that are published, due by now, and either
// uncategorized or in a published category.
func LiveScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("LEFT JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ? AND posts.pub_date <= ? AND (posts.category_id IS NULL OR categories.is_published = ?)",
				true, now.UTC(), true)
	}
}

func (r *postRepository) feed(ctx context.Context, q FeedQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Post{})
	if q.LiveOnly {
		tx = tx.Scopes(LiveScope(q.Now))
	}
	if q.CategoryID != nil {
		tx = tx.Where("posts.category_id = ?", *q.CategoryID)
	}
	if q.AuthorID != nil {
		tx = tx.Where("posts.author_id = ?", *q.AuthorID)
	}
	return tx
}

func (r *postRepository) CountFeed(ctx context.Context, q FeedQuery) (int64, error) {
	var total int64
	if err := r.feed(ctx, q).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *postRepository) ListFeed(ctx context.Context, q FeedQuery, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.feed(ctx, q).
		Select(commentsCountColumn).
		Preload("Author").
		Preload("Category").
		Preload("Location").
		Order("posts.pub_date DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Location").
		First(&post, id).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

// Update writes the editable columns only; the author never changes.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Select("title", "text", "pub_date", "is_published", "image", "category_id", "location_id", "updated_at").
		Updates(&models.Post{
			Title:       post.Title,
			Text:        post.Text,
			PubDate:     post.PubDate,
			IsPublished: post.IsPublished,
			Image:       post.Image,
			CategoryID:  post.CategoryID,
			LocationID:  post.LocationID,
			UpdatedAt:   time.Now().UTC(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post; its comments go with it.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) SetPublished(ctx context.Context, ids []uint, published bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id IN ?", ids).Update("is_published", published)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
