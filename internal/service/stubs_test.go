package service

import (
	"context"
	"errors"
	"testing"

	"blogicum/internal/models"
	"blogicum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint) (*models.Post, error)
	updateFn       func(context.Context, *models.Post) error
	deleteFn       func(context.Context, uint) error
	countFeedFn    func(context.Context, repository.FeedQuery) (int64, error)
	listFeedFn     func(context.Context, repository.FeedQuery, int, int) ([]models.Post, error)
	setPublishedFn func(context.Context, []uint, bool) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) CountFeed(ctx context.Context, q repository.FeedQuery) (int64, error) {
	return s.countFeedFn(ctx, q)
}
func (s *postRepoStub) ListFeed(ctx context.Context, q repository.FeedQuery, limit, offset int) ([]models.Post, error) {
	return s.listFeedFn(ctx, q, limit, offset)
}
func (s *postRepoStub) SetPublished(ctx context.Context, ids []uint, published bool) (int64, error) {
	return s.setPublishedFn(ctx, ids, published)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		updateFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
		countFeedFn: func(_ context.Context, _ repository.FeedQuery) (int64, error) {
			return 0, nil
		},
		listFeedFn: func(_ context.Context, _ repository.FeedQuery, _, _ int) ([]models.Post, error) {
			return nil, nil
		},
		setPublishedFn: func(_ context.Context, ids []uint, _ bool) (int64, error) { return int64(len(ids)), nil },
	}
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	getBySlugFn    func(context.Context, string) (*models.Category, error)
	getByIDFn      func(context.Context, uint) (*models.Category, error)
	listFn         func(context.Context) ([]models.Category, error)
	createFn       func(context.Context, *models.Category) error
	setPublishedFn func(context.Context, string, bool) error
	deleteFn       func(context.Context, string) error
}

func (s *categoryRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.listFn(ctx)
}
func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) SetPublished(ctx context.Context, slug string, published bool) error {
	return s.setPublishedFn(ctx, slug, published)
}
func (s *categoryRepoStub) Delete(ctx context.Context, slug string) error {
	return s.deleteFn(ctx, slug)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		getBySlugFn: func(_ context.Context, slug string) (*models.Category, error) {
			return nil, models.NewNotFoundError("Category", slug)
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Category, error) {
			return &models.Category{ID: id, IsPublished: true}, nil
		},
		listFn:         func(_ context.Context) ([]models.Category, error) { return nil, nil },
		createFn:       func(_ context.Context, c *models.Category) error { c.ID = 1; return nil },
		setPublishedFn: func(_ context.Context, _ string, _ bool) error { return nil },
		deleteFn:       func(_ context.Context, _ string) error { return nil },
	}
}

// locationRepoStub is a stub for repository.LocationRepository.
type locationRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.Location, error)
	listFn         func(context.Context) ([]models.Location, error)
	createFn       func(context.Context, *models.Location) error
	setPublishedFn func(context.Context, uint, bool) error
	deleteFn       func(context.Context, uint) error
}

func (s *locationRepoStub) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	return s.getByIDFn(ctx, id)
}
func (s *locationRepoStub) List(ctx context.Context) ([]models.Location, error) {
	return s.listFn(ctx)
}
func (s *locationRepoStub) Create(ctx context.Context, l *models.Location) error {
	return s.createFn(ctx, l)
}
func (s *locationRepoStub) SetPublished(ctx context.Context, id uint, published bool) error {
	return s.setPublishedFn(ctx, id, published)
}
func (s *locationRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopLocationRepo() *locationRepoStub {
	return &locationRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Location, error) {
			return &models.Location{ID: id, IsPublished: true}, nil
		},
		listFn:         func(_ context.Context) ([]models.Location, error) { return nil, nil },
		createFn:       func(_ context.Context, l *models.Location) error { l.ID = 1; return nil },
		setPublishedFn: func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getCredentialsFn func(context.Context, uint) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	createFn         func(context.Context, *models.User) error
	updateProfileFn  func(context.Context, *models.User) error
	updatePasswordFn func(context.Context, uint, string) error
	deleteFn         func(context.Context, uint) error
	countFn          func(context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetCredentials(ctx context.Context, id uint) (*models.User, error) {
	return s.getCredentialsFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, u *models.User) error {
	return s.updateProfileFn(ctx, u)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	notFound := func(id interface{}) error { return models.NewNotFoundError("User", id) }
	return &userRepoStub{
		getByIDFn:        func(_ context.Context, id uint) (*models.User, error) { return nil, notFound(id) },
		getCredentialsFn: func(_ context.Context, id uint) (*models.User, error) { return nil, notFound(id) },
		getByUsernameFn:  func(_ context.Context, name string) (*models.User, error) { return nil, notFound(name) },
		createFn:         func(_ context.Context, u *models.User) error { u.ID = 1; return nil },
		updateProfileFn:  func(_ context.Context, _ *models.User) error { return nil },
		updatePasswordFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		countFn:          func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]models.Comment, error)
	updateTextFn func(context.Context, uint, string) error
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) UpdateText(ctx context.Context, id uint, text string) error {
	return s.updateTextFn(ctx, id, text)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error { c.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		},
		listByPostFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		updateTextFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// imageStoreStub is a stub for ImageStore.
type imageStoreStub struct {
	saveFn func(context.Context, ImageUpload) (string, error)
}

func (s *imageStoreStub) Save(ctx context.Context, in ImageUpload) (string, error) {
	return s.saveFn(ctx, in)
}

var (
	_ repository.PostRepository     = (*postRepoStub)(nil)
	_ repository.CategoryRepository = (*categoryRepoStub)(nil)
	_ repository.LocationRepository = (*locationRepoStub)(nil)
	_ repository.UserRepository     = (*userRepoStub)(nil)
	_ repository.CommentRepository  = (*commentRepoStub)(nil)
	_ ImageStore                    = (*imageStoreStub)(nil)
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertFieldError asserts a VALIDATION_ERROR carrying a message for field.
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, field)
}
