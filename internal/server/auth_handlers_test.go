package server

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"blogicum/internal/config"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-42"

func registerUser(t *testing.T, env *testEnv, username string) *models.User {
	t.Helper()
	u, err := env.srv.userService.Register(context.Background(), service.RegistrationInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return u
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestRegistration(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get("/auth/registration/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "password2")

	form := url.Values{
		"username":   {"newbie"},
		"email":      {"newbie@example.com"},
		"first_name": {"New"},
		"password1":  {testPassword},
		"password2":  {testPassword},
	}
	resp = env.postForm("/auth/registration/", form, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)

	var user models.User
	require.NoError(t, env.db.Where("username = ?", "newbie").First(&user).Error)
	assert.Equal(t, "New", user.FirstName)
	assert.NotEqual(t, testPassword, user.Password)

	t.Run("taken username", func(t *testing.T) {
		form.Set("email", "other@example.com")
		resp := env.postForm("/auth/registration/", form, nil)
		body := readBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "A user with that username already exists.")
		assert.Nil(t, sessionCookie(resp))
	})

	t.Run("mismatched passwords", func(t *testing.T) {
		resp := env.postForm("/auth/registration/", url.Values{
			"username":  {"second"},
			"email":     {"second@example.com"},
			"password1": {testPassword},
			"password2": {testPassword + "x"},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRegistrationClosed(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.RegistrationOpen = false })

	resp := env.get("/auth/registration/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.postForm("/auth/registration/", url.Values{"username": {"x"}}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "writer")

	tests := []struct {
		name         string
		password     string
		next         string
		wantStatus   int
		wantLocation string
	}{
		{"goes home", testPassword, "", http.StatusFound, "/"},
		{"honours local next", testPassword, "/posts/create/", http.StatusFound, "/posts/create/"},
		{"ignores foreign next", testPassword, "//evil.example/", http.StatusFound, "/"},
		{"wrong password", "nope-nope-1", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"username": {"writer"}, "password": {tt.password}}
			if tt.next != "" {
				form.Set("next", tt.next)
			}
			resp := env.postForm("/auth/login/", form, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
				assert.NotNil(t, sessionCookie(resp))
				return
			}
			body := readBody(t, resp)
			assert.Contains(t, body, "Please enter a correct username and password.")
		})
	}
}

func TestLoginForm_KeepsSafeNext(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get("/auth/login/?next=/edit_profile/", nil)
	assert.Contains(t, readBody(t, resp), `name="next" value="/edit_profile/"`)

	resp = env.get("/auth/login/?next=https://evil.example/", nil)
	assert.NotContains(t, readBody(t, resp), "evil.example")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "leaving")

	resp := env.postForm("/auth/logout/", url.Values{}, user)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}
