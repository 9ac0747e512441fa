package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/middleware"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/services"
)

// AuthHandler handles registration, login, logout and the profile.
type AuthHandler struct {
	userService    services.UserServicer
	sessionService services.SessionServicer
	auditService   services.AuditServicer
	tokens         *middleware.SessionTokens
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userService services.UserServicer,
	sessionService services.SessionServicer,
	auditService services.AuditServicer,
	tokens *middleware.SessionTokens,
) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
		auditService:   auditService,
		tokens:         tokens,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required,notblank,max=80"`
	Email    string `json:"email" form:"email" binding:"required,email,max=120"`
	Password string `json:"password" form:"password" binding:"required,max=128"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
	Next     string `json:"next" form:"next"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	User     UserResponse `json:"user"`
	LoginURL string       `json:"login_url"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Register handles user registration
// @Summary     Register a new user
// @Description Create an account. Emails are compared case-insensitively.
// @Tags        auth
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} RegisterResponse "User registered"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email or username already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), user.ID, services.AuditRegister, "user", user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, RegisterResponse{User: newUserResponse(user), LoginURL: middleware.LoginPath})
}

// Login handles user login
// @Summary     Login user
// @Description Verify credentials and open a session. The session token is set as a cookie and returned in the body.
// @Description When "next" is a local path the response is a 303 redirect there instead.
// @Tags        auth
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       request body  LoginRequest true  "User login credentials"
// @Param       next    query string       false "Local path to continue to after login"
// @Success     200 {object} AuthResponse "Session opened"
// @Success     303 "Redirect to next"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	ctx := c.Request.Context()

	user, err := h.userService.Verify(ctx, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if user == nil {
		respondWithError(c, apperrors.ErrInvalidCredentials)
		return
	}

	session, err := h.sessionService.CreateSession(ctx, user.ID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.tokens.Issue(session)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	h.tokens.SetCookie(c, token, session.ExpiresAt)

	h.auditService.Log(ctx, user.ID, services.AuditLogin, "session", 0, c.ClientIP(), nil)

	next := req.Next
	if next == "" {
		next = c.Query("next")
	}
	if target, ok := middleware.SafeRedirectTarget(next); ok {
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      newUserResponse(user),
	})
}

// LoginForm describes the login form to an unauthenticated caller.
// @Summary     Login form
// @Description Echo back a safe "next" path so it can be submitted with the credentials
// @Tags        auth
// @Produce     json
// @Param       next query string false "Local path to continue to after login"
// @Success     200 {object} map[string]string "Form state"
// @Router      /login [get]
func (h *AuthHandler) LoginForm(c *gin.Context) {
	next, _ := middleware.SafeRedirectTarget(c.Query("next"))
	c.JSON(http.StatusOK, gin.H{
		"next":         next,
		"register_url": "/register",
	})
}

// Logout ends the current session
// @Summary     Logout
// @Description Revoke the current session and clear the session cookie. Browsers are redirected to the login page.
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MessageResponse "Logged out"
// @Success     302 "Redirect to the login page"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.sessionService.RevokeSession(c.Request.Context(), c.GetString(middleware.ContextSessionID)); err != nil {
		respondWithError(c, err)
		return
	}
	h.tokens.ClearCookie(c)

	h.auditService.Log(c.Request.Context(), userID, services.AuditLogout, "session", 0, c.ClientIP(), nil)

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
		return
	}
	c.Redirect(http.StatusFound, middleware.LoginPath)
}

// GetProfile returns the user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's profile information
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}
