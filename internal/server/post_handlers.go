package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return s.renderDetail(c, fiber.StatusOK, id, service.CommentInput{}, nil)
}

func (s *Server) renderDetail(c *fiber.Ctx, status int, id uint, form service.CommentInput, errs models.FieldErrors) error {
	ctx := c.UserContext()
	viewer := viewerOf(c)

	post, err := s.postService.Get(ctx, viewer, id)
	if err != nil {
		return err
	}
	comments, err := s.commentService.List(ctx, post.ID)
	if err != nil {
		return err
	}

	return s.render(c, status, "blog/detail", fiber.Map{
		"post":     post,
		"comments": comments,
		"form":     form,
		"errors":   errs,
		"own":      viewer.Is(post.AuthorID),
	})
}

// CreatePostForm handles GET /posts/create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.StatusOK, nil, s.postService.NewPostInput(), nil)
}

// CreatePost handles POST /posts/create/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in service.PostInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	upload, err := imageUpload(c)
	if err != nil {
		return s.renderPostForm(c, fiber.StatusBadRequest, nil, in, fieldErrors(err))
	}

	viewer := viewerOf(c)
	if _, err := s.postService.Create(c.UserContext(), viewer, in, upload); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderPostForm(c, fiber.StatusBadRequest, nil, in, errs)
		}
		if handled, rerr := denied(c, err, "/"); handled {
			return rerr
		}
		return err
	}

	return c.Redirect(profileURL(currentUser(c).Username), fiber.StatusFound)
}

// EditPostForm handles GET /posts/:id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.GetForChange(c.UserContext(), viewerOf(c), id, service.ActionEdit)
	if err != nil {
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}
	return s.renderPostForm(c, fiber.StatusOK, post, s.postService.InputFor(post), nil)
}

// EditPost handles POST /posts/:id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	viewer := viewerOf(c)

	// Ownership is settled before the form is looked at.
	post, err := s.postService.GetForChange(ctx, viewer, id, service.ActionEdit)
	if err != nil {
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}

	var in service.PostInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	upload, err := imageUpload(c)
	if err != nil {
		return s.renderPostForm(c, fiber.StatusBadRequest, post, in, fieldErrors(err))
	}

	if _, err := s.postService.Update(ctx, viewer, id, in, upload); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderPostForm(c, fiber.StatusBadRequest, post, in, errs)
		}
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

// DeletePostConfirm handles GET /posts/:id/delete/
func (s *Server) DeletePostConfirm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.GetForChange(c.UserContext(), viewerOf(c), id, service.ActionDelete)
	if err != nil {
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/delete_post", fiber.Map{
		"post": post,
	})
}

// DeletePost handles POST /posts/:id/delete/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if _, err := s.postService.Delete(c.UserContext(), viewerOf(c), id); err != nil {
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}
	return c.Redirect(profileURL(currentUser(c).Username), fiber.StatusFound)
}

// renderPostForm shows the create/edit form. post is nil when creating.
func (s *Server) renderPostForm(c *fiber.Ctx, status int, post *models.Post, form service.PostInput, errs models.FieldErrors) error {
	ctx := c.UserContext()
	categories, err := s.categoryService.Categories(ctx)
	if err != nil {
		return err
	}
	locations, err := s.categoryService.Locations(ctx)
	if err != nil {
		return err
	}

	return s.render(c, status, "blog/create", fiber.Map{
		"post":       post,
		"form":       form,
		"errors":     errs,
		"categories": categories,
		"locations":  locations,
	})
}
