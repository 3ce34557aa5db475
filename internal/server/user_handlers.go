package server

import (
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// EditProfileForm handles GET /edit_profile/
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "blog/user", fiber.Map{
		"form": s.userService.ProfileInputFor(currentUser(c)),
	})
}

// EditProfile handles POST /edit_profile/
func (s *Server) EditProfile(c *fiber.Ctx) error {
	var in service.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), viewerOf(c), in)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.render(c, fiber.StatusBadRequest, "blog/user", fiber.Map{
				"form":   in,
				"errors": errs,
			})
		}
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// PasswordChangeForm handles GET /password_change/
func (s *Server) PasswordChangeForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/password_change_form", nil)
}

// PasswordChange handles POST /password_change/
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	var in service.PasswordChangeInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	if err := s.userService.ChangePassword(c.UserContext(), viewerOf(c), in); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.render(c, fiber.StatusBadRequest, "registration/password_change_form", fiber.Map{
				"errors": errs,
			})
		}
		return err
	}

	return c.Redirect("/password_change/done/", fiber.StatusFound)
}

// PasswordChangeDone handles GET /password_change/done/
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/password_change_done", nil)
}
