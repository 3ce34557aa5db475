package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var in service.CommentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	if _, err := s.commentService.Create(c.UserContext(), viewerOf(c), id, in); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderDetail(c, fiber.StatusBadRequest, id, in, errs)
		}
		if handled, rerr := denied(c, err, postURL(id)); handled {
			return rerr
		}
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

// EditCommentForm handles GET /posts/:id/edit_comment/:cid/
func (s *Server) EditCommentForm(c *fiber.Ctx) error {
	postID, cid, err := commentIDs(c)
	if err != nil {
		return err
	}

	comment, err := s.commentService.GetForChange(c.UserContext(), viewerOf(c), postID, cid, service.ActionEdit)
	if err != nil {
		if handled, rerr := denied(c, err, postURL(postID)); handled {
			return rerr
		}
		return err
	}
	return s.renderCommentForm(c, fiber.StatusOK, comment, service.CommentInput{Text: comment.Text}, nil)
}

// EditComment handles POST /posts/:id/edit_comment/:cid/
func (s *Server) EditComment(c *fiber.Ctx) error {
	postID, cid, err := commentIDs(c)
	if err != nil {
		return err
	}

	var in service.CommentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	ctx := c.UserContext()
	viewer := viewerOf(c)
	if _, err := s.commentService.Update(ctx, viewer, postID, cid, in); err != nil {
		if errs := fieldErrors(err); errs != nil {
			comment, gerr := s.commentService.GetForChange(ctx, viewer, postID, cid, service.ActionEdit)
			if gerr != nil {
				return gerr
			}
			return s.renderCommentForm(c, fiber.StatusBadRequest, comment, in, errs)
		}
		if handled, rerr := denied(c, err, postURL(postID)); handled {
			return rerr
		}
		return err
	}
	return c.Redirect(postURL(postID), fiber.StatusFound)
}

// DeleteCommentConfirm handles GET /posts/:id/delete_comment/:cid/
func (s *Server) DeleteCommentConfirm(c *fiber.Ctx) error {
	postID, cid, err := commentIDs(c)
	if err != nil {
		return err
	}

	comment, err := s.commentService.GetForChange(c.UserContext(), viewerOf(c), postID, cid, service.ActionDelete)
	if err != nil {
		if handled, rerr := denied(c, err, postURL(postID)); handled {
			return rerr
		}
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/comment", fiber.Map{
		"comment": comment,
		"delete":  true,
	})
}

// DeleteComment handles POST /posts/:id/delete_comment/:cid/
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, cid, err := commentIDs(c)
	if err != nil {
		return err
	}

	if _, err := s.commentService.Delete(c.UserContext(), viewerOf(c), postID, cid); err != nil {
		if handled, rerr := denied(c, err, postURL(postID)); handled {
			return rerr
		}
		return err
	}
	return c.Redirect(postURL(postID), fiber.StatusFound)
}

func commentIDs(c *fiber.Ctx) (uint, uint, error) {
	postID, err := parseID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	cid, err := parseID(c, "cid")
	if err != nil {
		return 0, 0, err
	}
	return postID, cid, nil
}

func (s *Server) renderCommentForm(c *fiber.Ctx, status int, comment *models.Comment, form service.CommentInput, errs models.FieldErrors) error {
	return s.render(c, status, "blog/comment", fiber.Map{
		"comment": comment,
		"form":    form,
		"errors":  errs,
	})
}
