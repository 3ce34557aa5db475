package service

import (
	"context"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

// CommentInput is the comment form. The author and post come from the
// session and the URL, never from the form.
type CommentInput struct {
	Text string `form:"text" validate:"required,max=10000"`
}

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	now      func() time.Time
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns the thread of a post, oldest first.
func (s *CommentService) List(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// Create adds a comment by viewer to a post the viewer can see.
func (s *CommentService) Create(ctx context.Context, viewer Viewer, postID uint, in CommentInput) (*models.Comment, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.NewUnauthorizedError("Log in to comment")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, post, s.now()) {
		return nil, models.NewNotFoundError("Post", postID)
	}

	in.Text = strings.TrimSpace(in.Text)
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}

	comment := &models.Comment{
		Text:     in.Text,
		AuthorID: viewer.ID,
		PostID:   post.ID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("comment", "create").Inc()
	return comment, nil
}

// GetForChange loads the comment cid under post postID and checks that
// viewer may perform action on it. A comment from another post is NotFound.
func (s *CommentService) GetForChange(ctx context.Context, viewer Viewer, postID, cid uint, action Action) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, cid)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", cid)
	}
	if err := guard(viewer, comment, action, "comment"); err != nil {
		return nil, err
	}
	return comment, nil
}

// Update rewrites the text of a comment. Only its author may do so.
func (s *CommentService) Update(ctx context.Context, viewer Viewer, postID, cid uint, in CommentInput) (*models.Comment, error) {
	comment, err := s.GetForChange(ctx, viewer, postID, cid, ActionEdit)
	if err != nil {
		return nil, err
	}

	in.Text = strings.TrimSpace(in.Text)
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}
	if err := s.comments.UpdateText(ctx, comment.ID, in.Text); err != nil {
		return nil, err
	}
	comment.Text = in.Text
	observability.ContentWrites.WithLabelValues("comment", "update").Inc()
	return comment, nil
}

// Delete removes a comment. Its author and superusers may do so.
func (s *CommentService) Delete(ctx context.Context, viewer Viewer, postID, cid uint) (*models.Comment, error) {
	comment, err := s.GetForChange(ctx, viewer, postID, cid, ActionDelete)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	observability.ContentWrites.WithLabelValues("comment", "delete").Inc()
	return comment, nil
}
