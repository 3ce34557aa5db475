package server

import (
	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	feed, err := s.feedService.Home(c.UserContext(), viewerOf(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/index", fiber.Map{
		"feed": feed,
	})
}

// CategoryPosts handles GET /category/:slug/
func (s *Server) CategoryPosts(c *fiber.Ctx) error {
	category, feed, err := s.feedService.Category(c.UserContext(), viewerOf(c), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/category", fiber.Map{
		"category": category,
		"feed":     feed,
	})
}

// Profile handles GET /profile/:username/. Authors see their own drafts
// and scheduled posts here.
func (s *Server) Profile(c *fiber.Ctx) error {
	viewer := viewerOf(c)
	profile, feed, err := s.feedService.Profile(c.UserContext(), viewer, c.Params("username"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/profile", fiber.Map{
		"profile": profile,
		"feed":    feed,
		"own":     viewer.Is(profile.ID),
	})
}
