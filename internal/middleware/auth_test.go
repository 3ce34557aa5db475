package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func sessionApp(s *Sessions) *fiber.App {
	app := fiber.New()
	app.Use(LoadSession(s))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		return c.SendString(strconv.FormatUint(uint64(uid), 10))
	})
	app.Get("/private", LoginRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return s.Logout(c)
	})
	return app
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}

func TestSessions_IssueAndParse(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, false, nil)

	token, expires, err := s.Issue(42, "author")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := s.Parse(context.Background(), token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
	assert.Equal(t, "author", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestSessions_ParseRejects(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, false, nil)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}
	base := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"mobile"}

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "malformed.token.here"},
		{"expired", sign(SessionClaims{RegisteredClaims: expired}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong issuer", sign(SessionClaims{RegisteredClaims: wrongIssuer}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong audience", sign(SessionClaims{RegisteredClaims: wrongAudience}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong secret", sign(SessionClaims{RegisteredClaims: base()}, jwt.SigningMethodHS256, []byte("another-secret"))},
		{"none algorithm", sign(SessionClaims{RegisteredClaims: base()}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestLoadSession(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, false, nil)
	app := sessionApp(s)
	token, _, err := s.Issue(7, "reader")
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
		require.NoError(t, err)
		assert.Equal(t, "0", readBody(t, resp))
	})

	t.Run("valid cookie", func(t *testing.T) {
		resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), token))
		require.NoError(t, err)
		assert.Equal(t, "7", readBody(t, resp))
	})

	t.Run("garbage cookie is treated as anonymous", func(t *testing.T) {
		resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), "garbage"))
		require.NoError(t, err)
		assert.Equal(t, "0", readBody(t, resp))
	})
}

func TestLoginRequired(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, false, nil)
	app := sessionApp(s)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/private?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=%2Fprivate%3Fx%3D1", resp.Header.Get("Location"))

	token, _, err := s.Issue(3, "writer")
	require.NoError(t, err)
	resp, err = app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/private", nil), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	_, rdb := newMiniRedis(t)
	s := NewSessions(testSecret, time.Hour, false, rdb)
	app := sessionApp(s)

	token, _, err := s.Issue(9, "leaving")
	require.NoError(t, err)

	resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodPost, "/logout", nil), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = s.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	resp, err = app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/whoami", nil), token))
	require.NoError(t, err)
	assert.Equal(t, "0", readBody(t, resp))
}

func TestSafeNext(t *testing.T) {
	t.Parallel()
	assert.True(t, SafeNext("/posts/1/"))
	assert.False(t, SafeNext(""))
	assert.False(t, SafeNext("https://evil.example"))
	assert.False(t, SafeNext("//evil.example"))
	assert.False(t, SafeNext("/\\evil.example"))
	assert.Equal(t, "/auth/login/", LoginURL("//evil"))
}
