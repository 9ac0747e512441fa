package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/uuid"
)

// sessionService stores login sessions so they can be revoked server-side.
type sessionService struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionService creates a new SessionServicer whose sessions live for ttl.
func NewSessionService(db *gorm.DB, ttl time.Duration) SessionServicer {
	return &sessionService{db: db, ttl: ttl, now: time.Now}
}

// CreateSession opens a new session for the user.
func (s *sessionService) CreateSession(ctx context.Context, userID uint, ipAddress, userAgent string) (*models.Session, error) {
	if len(userAgent) > 255 {
		userAgent = strings.ToValidUTF8(userAgent[:255], "")
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return session, nil
}

// ValidateSession returns the session if it exists, is not revoked and has not expired.
func (s *sessionService) ValidateSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if !uuid.IsValid(sessionID) {
		return nil, apperrors.ErrSessionNotFound
	}

	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if session.RevokedAt != nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if !session.Active(s.now()) {
		return nil, apperrors.ErrSessionExpired
	}
	return &session, nil
}

// RevokeSession ends the session immediately. Revoking an unknown or
// already revoked session is not an error.
func (s *sessionService) RevokeSession(ctx context.Context, sessionID string) error {
	if !uuid.IsValid(sessionID) {
		return nil
	}

	now := s.now().UTC()
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
