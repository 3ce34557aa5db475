package service

import (
	"context"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Feed is one page of posts, newest first, each annotated with its
// comment count.
type Feed struct {
	Posts []models.Post
	Page  Page
}

// FeedService composes the home, category and profile feeds.
type FeedService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	pageSize   int
	now        func() time.Time
}

func NewFeedService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	pageSize int,
) *FeedService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FeedService{
		posts:      posts,
		categories: categories,
		users:      users,
		pageSize:   pageSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Home lists every live post.
func (s *FeedService) Home(ctx context.Context, viewer Viewer, rawPage string) (*Feed, error) {
	ctx, span := observability.StartSpan(ctx, "feed", "home")
	defer span.End()

	feed, err := s.compose(ctx, repository.FeedQuery{LiveOnly: true, Now: s.now()}, rawPage)
	span.SetError(err)
	return feed, err
}

// Category lists the live posts of a published category. Missing and
// unpublished categories are both NotFound.
func (s *FeedService) Category(ctx context.Context, viewer Viewer, slug, rawPage string) (*models.Category, *Feed, error) {
	ctx, span := observability.StartSpan(ctx, "feed", "category", attribute.String("category.slug", slug))
	defer span.End()

	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	if !category.IsPublished {
		return nil, nil, models.NewNotFoundError("Category", slug)
	}

	feed, err := s.compose(ctx, repository.FeedQuery{
		CategoryID: &category.ID,
		LiveOnly:   true,
		Now:        s.now(),
	}, rawPage)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return category, feed, nil
}

// Profile lists the posts of username. The owner of the profile sees all of
// them, drafts and scheduled posts included; everyone else sees live ones.
func (s *FeedService) Profile(ctx context.Context, viewer Viewer, username, rawPage string) (*models.User, *Feed, error) {
	ctx, span := observability.StartSpan(ctx, "feed", "profile", attribute.String("profile.username", username))
	defer span.End()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	user.Password = ""

	own := viewer.Is(user.ID)
	span.AddAttributes(attribute.Bool("profile.own", own))

	feed, err := s.compose(ctx, repository.FeedQuery{
		AuthorID: &user.ID,
		LiveOnly: !own,
		Now:      s.now(),
	}, rawPage)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return user, feed, nil
}

func (s *FeedService) compose(ctx context.Context, q repository.FeedQuery, rawPage string) (*Feed, error) {
	total, err := s.posts.CountFeed(ctx, q)
	if err != nil {
		return nil, err
	}
	page := Paginate(total, s.pageSize, rawPage)

	posts := []models.Post{}
	if total > 0 {
		posts, err = s.posts.ListFeed(ctx, q, page.Size, page.Offset())
		if err != nil {
			return nil, err
		}
	}
	return &Feed{Posts: posts, Page: page}, nil
}
