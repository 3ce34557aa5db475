// Package middleware provides request middleware: logging, sessions, rate
// limiting, tracing and metrics.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionCookie is the name of the cookie carrying the signed session token.
	SessionCookie = "blogicum_session"

	tokenIssuer   = "blogicum"
	tokenAudience = "blogicum-web"
	revokedPrefix = "blacklist:"
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrSessionRevoked = errors.New("session has been revoked")
)

// SessionClaims are the JWT claims stored in the session cookie.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

// Sessions issues, verifies and revokes cookie session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	redis  *redis.Client
	now    func() time.Time
}

// NewSessions creates a session manager. rdb may be nil, in which case
// logout only clears the cookie and tokens stay valid until they expire.
func NewSessions(secret string, ttl time.Duration, secureCookie bool, rdb *redis.Client) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
		redis:  rdb,
		now:    time.Now,
	}
}

// Issue signs a new token for the user.
func (s *Sessions) Issue(userID uint, username string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies signature, issuer, audience, expiry and revocation.
func (s *Sessions) Parse(ctx context.Context, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	if claims.ID != "" && s.redis != nil {
		n, err := s.redis.Exists(ctx, revokedPrefix+claims.ID).Result()
		if err == nil && n > 0 {
			return nil, ErrSessionRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired.
func (s *Sessions) Revoke(ctx context.Context, claims *SessionClaims) error {
	if s.redis == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedPrefix+claims.ID, "1", ttl).Err()
}

// Login issues a token and writes the session cookie.
func (s *Sessions) Login(c *fiber.Ctx, userID uint, username string) error {
	token, expires, err := s.Issue(userID, username)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Logout revokes the current token, if any, and clears the cookie.
func (s *Sessions) Logout(c *fiber.Ctx) error {
	var err error
	if claims, ok := c.Locals("session").(*SessionClaims); ok {
		err = s.Revoke(c.UserContext(), claims)
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return err
}

// LoadSession resolves the session cookie into Locals("userID") and
// Locals("session"). Anonymous requests pass through untouched; a bad cookie
// is cleared.
func LoadSession(s *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}

		claims, err := s.Parse(c.UserContext(), token)
		if err != nil {
			c.ClearCookie(SessionCookie)
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			c.ClearCookie(SessionCookie)
			return c.Next()
		}

		c.Locals("userID", userID)
		c.Locals("session", claims)
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, remembering
// where they were going.
func LoginRequired(c *fiber.Ctx) error {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return c.Next()
	}
	return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
}

// LoginURL builds the login address carrying next.
func LoginURL(next string) string {
	if !SafeNext(next) {
		return "/auth/login/"
	}
	return "/auth/login/?next=" + url.QueryEscape(next)
}

// SafeNext reports whether next is a same-site absolute path.
func SafeNext(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") {
		return false
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return false
	}
	return !strings.ContainsAny(next, "\r\n")
}
