package server

import "github.com/gofiber/fiber/v2"

// About handles GET /pages/about/
func (s *Server) About(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "pages/about", nil)
}

// Rules handles GET /pages/rules/
func (s *Server) Rules(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "pages/rules", nil)
}
