package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// errorPages maps a status to its template. Other 5xx statuses use the
// 500 page.
var errorPages = map[int]string{
	fiber.StatusBadRequest:      "errors/400",
	fiber.StatusForbidden:       "errors/403",
	fiber.StatusNotFound:        "errors/404",
	fiber.StatusTooManyRequests: "errors/429",
}

// ErrorHandler renders an HTML error page for anything a handler returns.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)

	// Conflicts normally surface as field errors on a form.
	switch status {
	case fiber.StatusUnauthorized:
		return c.Redirect(middleware.LoginURL(c.OriginalURL()), fiber.StatusFound)
	case fiber.StatusConflict:
		status = fiber.StatusBadRequest
	}

	name, ok := errorPages[status]
	if !ok {
		name = "errors/500"
		if status < fiber.StatusInternalServerError {
			name = "errors/400"
		}
	}

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	data := fiber.Map{"status": status}
	var fe *fiber.Error
	if errors.As(err, &fe) && status < fiber.StatusInternalServerError {
		data["message"] = fe.Message
	}
	if renderErr := s.render(c, status, name, data); renderErr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to render error page",
			slog.String("template", name),
			slog.String("error", renderErr.Error()),
		)
		return models.RespondWithError(c, status, err)
	}
	return nil
}

// LoadViewer resolves Locals("userID") into the current user. A session
// whose user no longer exists is treated as anonymous.
func (s *Server) LoadViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := c.Locals("userID").(uint)
		if !ok || uid == 0 {
			return c.Next()
		}

		user, err := s.userRepo.GetByID(c.UserContext(), uid)
		if err != nil {
			if !models.IsNotFound(err) {
				return err
			}
			c.Locals("userID", uint(0))
			c.ClearCookie(middleware.SessionCookie)
			return c.Next()
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// SuperuserRequired rejects everyone but superusers with 403. It must run
// after LoginRequired.
func (s *Server) SuperuserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !viewerOf(c).IsSuperuser {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func viewerOf(c *fiber.Ctx) service.Viewer {
	return service.ViewerOf(currentUser(c))
}

// parseID reads a positive numeric route parameter. Anything else is a
// page that does not exist.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// imageUpload extracts the optional "image" file from a multipart form.
func imageUpload(c *fiber.Ctx) (*service.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return nil, nil
		}
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	if file.Filename == "" && file.Size == 0 {
		return nil, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}

	return &service.ImageUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return len(c.Request().Header.MultipartFormBoundary()) > 0
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// fieldErrors returns the per-field messages of a validation or conflict
// error, or nil when err is something else.
func fieldErrors(err error) models.FieldErrors {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeConflict:
		if appErr.Fields != nil {
			return appErr.Fields
		}
		return models.FieldErrors{"__all__": appErr.Message}
	}
	return nil
}

// denied turns the guard's refusals into redirects: anonymous visitors go
// to the login page, everyone else back to fallback. It reports false for
// any other error.
func denied(c *fiber.Ctx, err error, fallback string) (bool, error) {
	switch models.ErrorCode(err) {
	case models.CodeUnauthorized:
		return true, c.Redirect(middleware.LoginURL(c.OriginalURL()), fiber.StatusFound)
	case models.CodeForbidden:
		return true, c.Redirect(fallback, fiber.StatusFound)
	}
	return false, nil
}
