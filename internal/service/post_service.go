package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PubDateLayout is the format of an HTML datetime-local input.
const PubDateLayout = "2006-01-02T15:04"

var pubDateLayouts = []string{PubDateLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05"}

// PostInput is the post form as submitted. Author is never part of it.
type PostInput struct {
	Title       string `form:"title" validate:"required,max=256"`
	Text        string `form:"text" validate:"required,max=50000"`
	PubDate     string `form:"pub_date" validate:"required"`
	CategoryID  string `form:"category"`
	LocationID  string `form:"location"`
	IsPublished bool   `form:"is_published"`
	ImageClear  bool   `form:"image_clear"`
}

type PostService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	locations  repository.LocationRepository
	images     ImageStore
	loc        *time.Location
	now        func() time.Time
}

func NewPostService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	locations repository.LocationRepository,
	images ImageStore,
	loc *time.Location,
) *PostService {
	if loc == nil {
		loc = time.UTC
	}
	return &PostService{
		posts:      posts,
		categories: categories,
		locations:  locations,
		images:     images,
		loc:        loc,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewPostInput is the form of a fresh post: published now.
func (s *PostService) NewPostInput() PostInput {
	return PostInput{
		PubDate:     s.now().In(s.loc).Format(PubDateLayout),
		IsPublished: true,
	}
}

// InputFor turns a stored post back into form values.
func (s *PostService) InputFor(post *models.Post) PostInput {
	in := PostInput{
		Title:       post.Title,
		Text:        post.Text,
		PubDate:     post.PubDate.In(s.loc).Format(PubDateLayout),
		IsPublished: post.IsPublished,
	}
	if post.CategoryID != nil {
		in.CategoryID = strconv.FormatUint(uint64(*post.CategoryID), 10)
	}
	if post.LocationID != nil {
		in.LocationID = strconv.FormatUint(uint64(*post.LocationID), 10)
	}
	return in
}

// Get returns the post if viewer may see it and NotFound otherwise, so
// hidden posts are indistinguishable from missing ones.
func (s *PostService) Get(ctx context.Context, viewer Viewer, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, post, s.now()) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// GetForChange loads a post and checks that viewer may perform action on it.
func (s *PostService) GetForChange(ctx context.Context, viewer Viewer, id uint, action Action) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(viewer, post, action, "post"); err != nil {
		return nil, err
	}
	return post, nil
}

// Create stores a new post authored by viewer.
func (s *PostService) Create(ctx context.Context, viewer Viewer, in PostInput, upload *ImageUpload) (*models.Post, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.NewUnauthorizedError("Log in to write a post")
	}
	ctx, span := observability.StartSpan(ctx, "post", "create")
	defer span.End()

	post := &models.Post{AuthorID: viewer.ID}
	if err := s.apply(ctx, post, in, upload); err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int("post.id", int(post.ID)))
	observability.ContentWrites.WithLabelValues("post", "create").Inc()
	return post, nil
}

// Update rewrites an existing post. Only its author may do so.
func (s *PostService) Update(ctx context.Context, viewer Viewer, id uint, in PostInput, upload *ImageUpload) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "post", "update", attribute.Int("post.id", int(id)))
	defer span.End()

	post, err := s.GetForChange(ctx, viewer, id, ActionEdit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.apply(ctx, post, in, upload); err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "update").Inc()
	return post, nil
}

// Delete removes a post and its comments. Only its author may do so.
func (s *PostService) Delete(ctx context.Context, viewer Viewer, id uint) (*models.Post, error) {
	post, err := s.GetForChange(ctx, viewer, id, ActionDelete)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("post", "delete").Inc()
	return post, nil
}

// SetPublished flips publication for a batch of posts regardless of owner.
// It backs the operator CLI.
func (s *PostService) SetPublished(ctx context.Context, ids []uint, published bool) (int64, error) {
	return s.posts.SetPublished(ctx, ids, published)
}

// apply validates in and copies it onto post. Nothing is written when any
// field is invalid.
func (s *PostService) apply(ctx context.Context, post *models.Post, in PostInput, upload *ImageUpload) error {
	in.Title = strings.TrimSpace(in.Title)
	res := validation.Check(in)
	fields := models.FieldErrors{}
	for k, v := range res.Errors {
		fields.Add(k, v)
	}

	var pubDate time.Time
	if in.PubDate != "" {
		var ok bool
		pubDate, ok = parsePubDate(in.PubDate, s.loc)
		if !ok {
			fields.Add("pub_date", "Enter a valid date/time.")
		}
	}

	categoryID, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		if !models.IsNotFound(err) {
			return err
		}
		fields.Add("category", "Select a valid choice. That choice is not one of the available choices.")
	}
	locationID, err := s.resolveLocation(ctx, in.LocationID)
	if err != nil {
		if !models.IsNotFound(err) {
			return err
		}
		fields.Add("location", "Select a valid choice. That choice is not one of the available choices.")
	}

	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}

	image := post.Image
	if in.ImageClear {
		image = ""
	}
	if upload != nil && len(upload.Content) > 0 {
		if s.images == nil {
			return models.NewValidationError("Image uploads are disabled")
		}
		hash, err := s.images.Save(ctx, *upload)
		if err != nil {
			return err
		}
		image = hash
	}

	post.Title = in.Title
	post.Text = in.Text
	post.PubDate = pubDate.UTC()
	post.IsPublished = in.IsPublished
	post.CategoryID = categoryID
	post.LocationID = locationID
	post.Image = image
	// Stale associations would mislead CanView on the returned post.
	post.Category = nil
	post.Location = nil
	return nil
}

func (s *PostService) resolveCategory(ctx context.Context, raw string) (*uint, error) {
	id, ok, err := parseChoice(raw, "Category")
	if err != nil || !ok {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *PostService) resolveLocation(ctx context.Context, raw string) (*uint, error) {
	id, ok, err := parseChoice(raw, "Location")
	if err != nil || !ok {
		return nil, err
	}
	if _, err := s.locations.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return &id, nil
}

// parseChoice reads an optional <select> value. Empty means no choice; a
// malformed value is reported as NotFound like an unknown id.
func parseChoice(raw, resource string) (uint, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false, models.NewNotFoundError(resource, raw)
	}
	return uint(id), true, nil
}

// parsePubDate reads a local wall-clock time in loc.
func parsePubDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
