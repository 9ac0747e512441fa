package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/password"
)

const (
	maxUsernameLength = 80
	maxEmailLength    = 120
)

// userService handles user-related business logic.
type userService struct {
	db         *gorm.DB
	hashParams password.Params

	dummyOnce sync.Once
	dummyHash string
}

// UserOption configures a user service.
type UserOption func(*userService)

// WithHashParams overrides the argon2id cost parameters for new hashes.
func WithHashParams(p password.Params) UserOption {
	return func(s *userService) { s.hashParams = p }
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, opts ...UserOption) UserServicer {
	s := &userService{db: db, hashParams: password.DefaultParams}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with a hashed password.
func (s *userService) Register(ctx context.Context, username, email, plain string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || plain == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username, email and password are required")
	}
	if len(username) > maxUsernameLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username must be at most 80 characters")
	}
	if len(email) > maxEmailLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email must be at most 120 characters")
	}

	db := s.db.WithContext(ctx)

	if err := s.checkAvailable(db, username, email); err != nil {
		return nil, err
	}

	hash, err := password.HashWithParams(plain, s.hashParams)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent registration; report which field clashed.
			if err := s.checkAvailable(db, username, email); err != nil {
				return nil, err
			}
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// checkAvailable reports a duplicate email before a duplicate username.
func (s *userService) checkAvailable(db *gorm.DB, username, email string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateEmail
	}

	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateUsername
	}
	return nil
}

// Verify checks credentials. An unknown email costs the same hash
// computation as a wrong password.
func (s *userService) Verify(ctx context.Context, email, plain string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_, _ = password.Verify(plain, s.getDummyHash())
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ok, err := password.Verify(plain, user.Password)
	if err != nil {
		logger.Get().Errorw("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	if password.NeedsRehashWithParams(user.Password, s.hashParams) {
		s.upgradeHash(ctx, &user, plain)
	}

	return &user, nil
}

// upgradeHash re-hashes a legacy or weaker hash. Failure only delays the upgrade.
func (s *userService) upgradeHash(ctx context.Context, user *models.User, plain string) {
	hash, err := password.HashWithParams(plain, s.hashParams)
	if err != nil {
		logger.Get().Warnw("failed to rehash password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		logger.Get().Warnw("failed to store upgraded password hash", "user_id", user.ID, "error", err)
	}
}

func (s *userService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := password.HashWithParams("dummy-password-for-timing", s.hashParams)
		if err != nil {
			logger.Get().Warnw("failed to build dummy hash", "error", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}
