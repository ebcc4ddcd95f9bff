package auth

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/database/users"
	"github.com/shelfwise/shelfwise/internal/entities"
)

// recordingMailer captures reset dispatches instead of sending them.
type recordingMailer struct {
	tokens []string
	emails []string
}

func (m *recordingMailer) SendPasswordReset(user *entities.User, token string) error {
	m.emails = append(m.emails, user.Email)
	m.tokens = append(m.tokens, token)
	return nil
}

func setupService(t *testing.T) (*Service, *database.Database, *recordingMailer, func()) {
	t.Helper()

	dbPath := "./test_auth_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.New(config.Database{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)

	// Minimum bcrypt cost keeps the suite fast.
	cfg := config.Auth{BcryptCost: 4, ResetExpiry: time.Minute}
	mailer := &recordingMailer{}
	tokens := NewResetTokens("test-secret", cfg.ResetExpiry)
	svc := NewService(users.NewRepository(db.DB), tokens, mailer, cfg, zap.NewNop())

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return svc, db, mailer, cleanup
}

func register(t *testing.T, svc *Service) *entities.User {
	t.Helper()
	user, err := svc.Register(context.Background(), "Alice", "alice", "alice@example.com", "s3cretpass")
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("self-registration yields a patron", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()

		user := register(t, svc)
		assert.Equal(t, entities.RolePatron, user.Role)
		assert.Equal(t, entities.DefaultProfilePicture, user.ProfilePicture)
		assert.NotEqual(t, "s3cretpass", user.PasswordHash)
	})

	t.Run("duplicate username or email is rejected", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()
		register(t, svc)

		_, err := svc.Register(ctx, "Other", "alice", "other@example.com", "s3cretpass")
		assert.ErrorIs(t, err, ErrUserExists)
		_, err = svc.Register(ctx, "Other", "other", "alice@example.com", "s3cretpass")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("validates inputs", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()

		_, err := svc.Register(ctx, "", "bob", "bob@example.com", "s3cretpass")
		assert.ErrorIs(t, err, ErrNameRequired)
		_, err = svc.Register(ctx, "Bob", "b!", "bob@example.com", "s3cretpass")
		assert.ErrorIs(t, err, ErrUsernameInvalid)
		_, err = svc.Register(ctx, "Bob", "bob", "not-an-email", "s3cretpass")
		assert.ErrorIs(t, err, ErrEmailInvalid)
		_, err = svc.Register(ctx, "Bob", "bob", "bob@example.com", "short")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("librarians are provisioned with the librarian role", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()

		staff, err := svc.CreateLibrarian(ctx, "Staff", "staff", "staff@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.Equal(t, entities.RoleLibrarian, staff.Role)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	svc, _, _, cleanup := setupService(t)
	defer cleanup()
	register(t, svc)

	user, err := svc.Authenticate(ctx, "alice", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(ctx, "alice", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Authenticate(ctx, "nobody", "s3cretpass")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields after password check", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()
		user := register(t, svc)

		updated, err := svc.UpdateProfile(ctx, user.ID, "s3cretpass", ProfileUpdate{
			Name: "Alice Cooper", Username: "acooper", Email: "acooper@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "acooper", updated.Username)
	})

	t.Run("wrong password changes nothing", func(t *testing.T) {
		svc, db, _, cleanup := setupService(t)
		defer cleanup()
		user := register(t, svc)

		_, err := svc.UpdateProfile(ctx, user.ID, "wrongpass", ProfileUpdate{
			Name: "Mallory", Username: "mallory", Email: "mallory@example.com",
		})
		assert.ErrorIs(t, err, ErrWrongPassword)

		var stored entities.User
		require.NoError(t, db.DB.First(&stored, user.ID).Error)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("cannot take another user's username", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()
		user := register(t, svc)
		_, err := svc.Register(ctx, "Bob", "bob", "bob@example.com", "s3cretpass")
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, user.ID, "s3cretpass", ProfileUpdate{
			Name: "Alice", Username: "bob", Email: "alice@example.com",
		})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	svc, _, _, cleanup := setupService(t)
	defer cleanup()
	user := register(t, svc)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrongpass", "newpassword"), ErrWrongPassword)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "s3cretpass", "newpassword"))
	_, err := svc.Authenticate(ctx, "alice", "newpassword")
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	svc, db, _, cleanup := setupService(t)
	defer cleanup()
	user := register(t, svc)

	// Seed lending history that must disappear with the account.
	book := &entities.Book{Title: "Dune", Author: "Author", SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(book).Error)
	require.NoError(t, db.DB.Create(&entities.BookRequest{UserID: user.ID, BookID: book.ID, Days: 3, Status: entities.RequestPending, DateCreated: entities.Today()}).Error)
	require.NoError(t, db.DB.Create(&entities.IssuedBook{UserID: user.ID, IssuedBy: user.ID, BookID: book.ID, FromDate: entities.Today(), ToDate: entities.Today(), Status: entities.LoanReturned}).Error)
	require.NoError(t, db.DB.Create(&entities.Feedback{UserID: user.ID, BookID: book.ID, Rating: 4, Content: "A thoroughly enjoyable read.", DateCreated: entities.Today()}).Error)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, user.ID, "wrongpass"), ErrWrongPassword)
	require.NoError(t, svc.DeleteAccount(ctx, user.ID, "s3cretpass"))

	_, err := svc.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	for _, model := range []any{&entities.BookRequest{}, &entities.IssuedBook{}, &entities.Feedback{}} {
		var count int64
		require.NoError(t, db.DB.Model(model).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip through token and new password", func(t *testing.T) {
		svc, _, mailer, cleanup := setupService(t)
		defer cleanup()
		register(t, svc)

		svc.RequestPasswordReset(ctx, "alice@example.com")
		require.Len(t, mailer.tokens, 1)
		assert.Equal(t, []string{"alice@example.com"}, mailer.emails)

		user, err := svc.ResetPassword(ctx, mailer.tokens[0], "freshpassword")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)

		_, err = svc.Authenticate(ctx, "alice", "freshpassword")
		assert.NoError(t, err)
	})

	t.Run("unknown email sends nothing and reveals nothing", func(t *testing.T) {
		svc, _, mailer, cleanup := setupService(t)
		defer cleanup()

		svc.RequestPasswordReset(ctx, "ghost@example.com")
		assert.Empty(t, mailer.tokens)
	})

	t.Run("garbage and expired tokens are rejected", func(t *testing.T) {
		svc, _, _, cleanup := setupService(t)
		defer cleanup()
		user := register(t, svc)

		_, err := svc.ResetPassword(ctx, "not-a-token", "freshpassword")
		assert.ErrorIs(t, err, ErrInvalidToken)

		// A token whose expiry has already passed.
		claims := resetClaims{
			UserID: user.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.ResetPassword(ctx, stale, "freshpassword")
		assert.ErrorIs(t, err, ErrInvalidToken)

		// A token signed with a different secret.
		forged, err := NewResetTokens("other-secret", time.Minute).Generate(user.ID)
		require.NoError(t, err)
		_, err = svc.ResetPassword(ctx, forged, "freshpassword")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
