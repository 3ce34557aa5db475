package service

import (
	"context"
	"errors"
	"strings"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,max=254,email"`
	FirstName       string `form:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" validate:"max=150"`
	Password        string `form:"password1" validate:"required,password"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// ProfileInput is the profile edit form.
type ProfileInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"required,max=254,email"`
}

// PasswordChangeInput is the password change form.
type PasswordChangeInput struct {
	OldPassword        string `form:"old_password" validate:"required"`
	NewPassword        string `form:"new_password1" validate:"required,password"`
	NewPasswordConfirm string `form:"new_password2" validate:"required,eqfield=NewPassword"`
}

// ErrInvalidCredentials is returned by Authenticate for any unknown
// username or wrong password.
var ErrInvalidCredentials = models.NewFieldValidationError(models.FieldErrors{
	"__all__": "Please enter a correct username and password. Note that both fields may be case-sensitive.",
})

type UserService struct {
	users repository.UserRepository
	cost  int
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Get returns the user with id without the password hash.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ProfileInputFor turns a user back into profile form values.
func (s *UserService) ProfileInputFor(u *models.User) ProfileInput {
	return ProfileInput{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// Register creates an account. Taken usernames and emails come back as
// field errors.
func (s *UserService) Register(ctx context.Context, in RegistrationInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if res := validation.Check(in); !res.OK() {
		observability.AuthEvents.WithLabelValues("register", "invalid").Inc()
		return nil, res.Err()
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.create(ctx, user, in.Password); err != nil {
		observability.AuthEvents.WithLabelValues("register", "error").Inc()
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	user.Password = ""
	return user, nil
}

// CreateSuperuser creates an administrator account for the operator CLI
// and the development bootstrap.
func (s *UserService) CreateSuperuser(ctx context.Context, username, email, password string) (*models.User, error) {
	fields := models.FieldErrors{}
	if err := validation.ValidateUsername(username); err != nil {
		fields.Add("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		fields.Add("email", err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		fields.Add("password", err.Error())
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	user := &models.User{Username: username, Email: email, IsSuperuser: true}
	if err := s.create(ctx, user, password); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.users.Create(ctx, user)
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if models.IsNotFound(err) {
			observability.AuthEvents.WithLabelValues("login", "failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); cmpErr != nil {
		observability.AuthEvents.WithLabelValues("login", "failure").Inc()
		if errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, models.NewInternalError(cmpErr)
	}

	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	user.Password = ""
	return user, nil
}

// UpdateProfile changes the viewer's own names, username and email.
func (s *UserService) UpdateProfile(ctx context.Context, viewer Viewer, in ProfileInput) (*models.User, error) {
	if !viewer.IsAuthenticated() {
		return nil, models.NewUnauthorizedError("Log in to edit your profile")
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if res := validation.Check(in); !res.OK() {
		return nil, res.Err()
	}

	user, err := s.users.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	user.Username = in.Username
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = in.Email
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the viewer's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, viewer Viewer, in PasswordChangeInput) error {
	if !viewer.IsAuthenticated() {
		return models.NewUnauthorizedError("Log in to change your password")
	}
	res := validation.Check(in)
	fields := models.FieldErrors{}
	for k, v := range res.Errors {
		fields.Add(k, v)
	}

	user, err := s.users.GetCredentials(ctx, viewer.ID)
	if err != nil {
		return err
	}
	if in.OldPassword != "" {
		if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.OldPassword)); cmpErr != nil {
			fields.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
		}
	}
	if len(fields) > 0 {
		observability.AuthEvents.WithLabelValues("password_change", "invalid").Inc()
		return models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, viewer.ID, string(hash)); err != nil {
		return err
	}
	observability.AuthEvents.WithLabelValues("password_change", "success").Inc()
	return nil
}
