package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID    = "userID"
	ContextSessionID = "sessionID"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

const tokenIssuer = "expensetrack"

// SessionClaims are the claims of a session token. The registered ID (jti)
// is the server-side session ID.
type SessionClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionValidator looks up a server-side session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// SessionTokens signs session tokens and moves them in and out of requests.
type SessionTokens struct {
	secret     []byte
	cookieName string
	secure     bool
}

// NewSessionTokens creates a SessionTokens signing with secret.
func NewSessionTokens(secret, cookieName string, secure bool) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), cookieName: cookieName, secure: secure}
}

// Issue signs an HS256 token for the session.
func (t *SessionTokens) Issue(session *models.Session) (string, error) {
	claims := &SessionClaims{
		UserID: session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", session.UserID),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies a token's signature, issuer and expiry.
func (t *SessionTokens) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.ID == "" {
		return nil, errors.New("session token has no session id")
	}
	return claims, nil
}

// FromRequest returns the bearer token, falling back to the session cookie.
func (t *SessionTokens) FromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(t.cookieName); err == nil {
		return cookie
	}
	return ""
}

// SetCookie stores the token in an HttpOnly cookie that expires with the session.
func (t *SessionTokens) SetCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(t.cookieName, token, maxAge, "/", "", t.secure, true)
}

// ClearCookie removes the session cookie.
func (t *SessionTokens) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(t.cookieName, "", -1, "/", "", t.secure, true)
}

// authenticate resolves the request's token to a live session.
func authenticate(c *gin.Context, tokens *SessionTokens, sessions SessionValidator) (*models.Session, error) {
	raw := tokens.FromRequest(c)
	if raw == "" {
		return nil, apperrors.ErrUnauthorized
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		logger.Get().Debugw("rejected session token", "error", err, "path", c.Request.URL.Path)
		return nil, apperrors.ErrUnauthorized
	}

	session, err := sessions.ValidateSession(c.Request.Context(), claims.ID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, apperrors.ErrUnauthorized
	}
	return session, nil
}

// AuthMiddleware requires a valid session and sets the user and session IDs
// in the context. Browsers without one are redirected to the login page with
// the original destination preserved; API clients get a 401.
func AuthMiddleware(tokens *SessionTokens, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := authenticate(c, tokens, sessions)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode == http.StatusInternalServerError {
				_ = c.Error(err)
				c.Abort()
				return
			}
			rejectUnauthenticated(c)
			return
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextSessionID, session.ID)
		c.Next()
	}
}

// RedirectIfAuthenticated sends callers who already hold a valid session
// to the dashboard. Anyone else passes through.
func RedirectIfAuthenticated(tokens *SessionTokens, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := authenticate(c, tokens, sessions); err == nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context) {
	loginURL := LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())

	if WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    apperrors.ErrUnauthorized.Code,
				"message": apperrors.ErrUnauthorized.Message,
			},
			"login_url": loginURL,
		})
		return
	}

	c.Redirect(http.StatusFound, loginURL)
	c.Abort()
}

// WantsJSON reports whether the client is an API client rather than a browser.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(strings.ToLower(c.GetHeader("Authorization")), "bearer ") {
		return true
	}
	if c.GetHeader("X-Requested-With") != "" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// SafeRedirectTarget returns next if it is a path on this site. Absolute
// URLs, scheme-relative "//host" paths and backslash tricks are refused.
func SafeRedirectTarget(next string) (string, bool) {
	if next == "" || next[0] != '/' || strings.HasPrefix(next, "//") {
		return "", false
	}
	for _, r := range next {
		if r == '\\' || r < 0x20 || r == 0x7f {
			return "", false
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return next, true
}
