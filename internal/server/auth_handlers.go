package server

import (
	"blogicum/internal/middleware"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegistrationForm handles GET /auth/registration/
func (s *Server) RegistrationForm(c *fiber.Ctx) error {
	if !s.config.RegistrationOpen {
		return fiber.ErrNotFound
	}
	return s.render(c, fiber.StatusOK, "registration/registration_form", fiber.Map{
		"form": service.RegistrationInput{},
	})
}

// Registration handles POST /auth/registration/. A new account is logged
// in straight away.
func (s *Server) Registration(c *fiber.Ctx) error {
	if !s.config.RegistrationOpen {
		return fiber.ErrNotFound
	}

	var in service.RegistrationInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	user, err := s.userService.Register(c.UserContext(), in)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			in.Password, in.PasswordConfirm = "", ""
			return s.render(c, fiber.StatusBadRequest, "registration/registration_form", fiber.Map{
				"form":   in,
				"errors": errs,
			})
		}
		return err
	}

	if err := s.sessions.Login(c, user.ID, user.Username); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/login", fiber.Map{
		"form": service.LoginInput{},
		"next": safeNext(c.Query("next")),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	next := safeNext(c.FormValue("next", c.Query("next")))

	user, err := s.userService.Authenticate(c.UserContext(), in)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			in.Password = ""
			return s.render(c, fiber.StatusBadRequest, "registration/login", fiber.Map{
				"form":   in,
				"errors": errs,
				"next":   next,
			})
		}
		return err
	}

	if err := s.sessions.Login(c, user.ID, user.Username); err != nil {
		return err
	}
	if next == "" {
		next = "/"
	}
	return c.Redirect(next, fiber.StatusFound)
}

// Logout handles POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		// The cookie is already cleared; the token just stays valid until it
		// expires.
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session")
	}
	return c.Redirect("/", fiber.StatusFound)
}

func safeNext(next string) string {
	if !middleware.SafeNext(next) {
		return ""
	}
	return next
}
