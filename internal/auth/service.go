package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database/users"
	"github.com/shelfwise/shelfwise/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("username or email already taken")
	ErrAuthRequired    = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed")
	ErrNameRequired    = errors.New("name is required")
	ErrUsernameInvalid = errors.New("username must be 3-32 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid    = errors.New("invalid email format")
	ErrInvalidToken    = errors.New("invalid or expired reset token")
	ErrWrongPassword   = errors.New("the password is incorrect")
)

// ResetMailer dispatches a password-reset message carrying a signed token.
// Dispatch is fire-and-forget: failures are logged, never surfaced.
type ResetMailer interface {
	SendPasswordReset(user *entities.User, token string) error
}

// Service handles registration, login, profile management and password reset.
type Service struct {
	users  *users.Repository
	tokens *ResetTokens
	mailer ResetMailer
	config config.Auth
	logger *zap.Logger
}

// NewService creates an authentication service.
func NewService(repo *users.Repository, tokens *ResetTokens, mailer ResetMailer, cfg config.Auth, logger *zap.Logger) *Service {
	return &Service{
		users:  repo,
		tokens: tokens,
		mailer: mailer,
		config: cfg,
		logger: logger,
	}
}

// ProfileUpdate carries the fields a user may change on their profile.
type ProfileUpdate struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Register creates a new account. Self-registration always yields a patron;
// librarians are provisioned out of band.
func (s *Service) Register(ctx context.Context, name, username, email, password string) (*entities.User, error) {
	return s.createUser(ctx, name, username, email, password, entities.RolePatron)
}

// CreateLibrarian provisions a librarian account.
func (s *Service) CreateLibrarian(ctx context.Context, name, username, email, password string) (*entities.User, error) {
	return s.createUser(ctx, name, username, email, password, entities.RoleLibrarian)
}

func (s *Service) createUser(_ context.Context, name, username, email, password string, role entities.UserRole) (*entities.User, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 length limit plus format check
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	taken, err := s.users.ExistsByUsernameOrEmail(username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Name:           name,
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		ProfilePicture: entities.DefaultProfilePicture,
		Role:           role,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("username", username),
		zap.String("role", string(role)))
	return user, nil
}

// Authenticate validates credentials and returns the user.
func (s *Service) Authenticate(_ context.Context, username, password string) (*entities.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(_ context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a password-gated profile update. On a wrong password
// the caller is expected to park the submitted fields in session flash state
// and redisplay them; nothing is persisted here.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, password string, update ProfileUpdate) (*entities.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrWrongPassword
	}

	if update.Name == "" {
		return nil, ErrNameRequired
	}
	if !usernamePattern.MatchString(update.Username) {
		return nil, ErrUsernameInvalid
	}
	if len(update.Email) > 254 || !emailPattern.MatchString(update.Email) {
		return nil, ErrEmailInvalid
	}
	if update.Username != user.Username || update.Email != user.Email {
		taken, err := s.otherUserHolds(userID, update.Username, update.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUserExists
		}
	}

	user.Name = update.Name
	user.Username = update.Username
	user.Email = update.Email
	if update.ProfilePicture != "" {
		user.ProfilePicture = update.ProfilePicture
	}
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) otherUserHolds(userID uint, username, email string) (bool, error) {
	if other, err := s.users.GetByUsername(username); err == nil && other.ID != userID {
		return true, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if other, err := s.users.GetByEmail(email); err == nil && other.ID != userID {
		return true, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return false, nil
}

// ChangePassword updates a user's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return ErrWrongPassword
	}

	hash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(userID, hash)
}

// DeleteAccount removes a password-gated account with all its requests,
// feedbacks and loans.
func (s *Service) DeleteAccount(ctx context.Context, userID uint, password string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return ErrWrongPassword
	}
	if err := s.users.Delete(userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", zap.Uint("user_id", userID))
	return nil
}

// RequestPasswordReset issues a reset token for the account behind the email
// and hands it to the mailer. Always succeeds from the caller's view: a
// missing account or a dispatch failure is logged, not surfaced, so the
// endpoint does not leak which emails exist.
func (s *Service) RequestPasswordReset(_ context.Context, email string) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		s.logger.Info("password reset requested for unknown email")
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.logger.Error("failed to generate reset token", zap.Error(err))
		return
	}

	if err := s.mailer.SendPasswordReset(user, token); err != nil {
		s.logger.Error("failed to dispatch reset email", zap.Error(err))
	}
}

// ResetPassword verifies a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*entities.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	hash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePasswordHash(user.ID, hash); err != nil {
		return nil, err
	}
	return user, nil
}
