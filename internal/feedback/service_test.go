package feedback

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/entities"
)

const validContent = "A thoroughly enjoyable read."

func setupTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()

	dbPath := "./test_feedback_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.New(config.Database{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

// seedBorrowed creates a patron, a book, and a returned loan linking them.
func seedBorrowed(t *testing.T, db *database.Database) (*entities.User, *entities.Book) {
	t.Helper()
	patron := &entities.User{
		Name: "Alice", Username: "alice", Email: "alice@example.com",
		PasswordHash: "irrelevant", Role: entities.RolePatron,
	}
	require.NoError(t, db.DB.Create(patron).Error)

	book := &entities.Book{
		Title: "Dune", Author: "Frank Herbert",
		SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today(),
	}
	require.NoError(t, db.DB.Create(book).Error)

	loan := &entities.IssuedBook{
		UserID: patron.ID, IssuedBy: patron.ID, BookID: book.ID,
		FromDate: entities.Today(), ToDate: entities.Today(),
		Status: entities.LoanReturned,
	}
	require.NoError(t, db.DB.Create(loan).Error)
	return patron, book
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts feedback from a past borrower", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		fb, err := svc.Submit(ctx, patron.ID, book.ID, 4, validContent)
		require.NoError(t, err)
		assert.Equal(t, 4, fb.Rating)
		assert.Equal(t, book.ID, fb.BookID)
	})

	t.Run("rejects patrons who never borrowed the book", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		_, book := seedBorrowed(t, db)

		stranger := &entities.User{
			Name: "Bob", Username: "bob", Email: "bob@example.com",
			PasswordHash: "irrelevant", Role: entities.RolePatron,
		}
		require.NoError(t, db.DB.Create(stranger).Error)

		_, err := svc.Submit(ctx, stranger.ID, book.ID, 4, validContent)
		assert.ErrorIs(t, err, ErrNotBorrowed)
	})

	t.Run("rejects a second feedback on the same book", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		_, err := svc.Submit(ctx, patron.ID, book.ID, 4, validContent)
		require.NoError(t, err)
		_, err = svc.Submit(ctx, patron.ID, book.ID, 5, validContent)
		assert.ErrorIs(t, err, ErrDuplicateFeedback)
	})

	t.Run("rejects unknown books", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, _ := seedBorrowed(t, db)

		_, err := svc.Submit(ctx, patron.ID, 999, 4, validContent)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("validates rating and content length", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		_, err := svc.Submit(ctx, patron.ID, book.ID, 0, validContent)
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = svc.Submit(ctx, patron.ID, book.ID, 6, validContent)
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = svc.Submit(ctx, patron.ID, book.ID, 3, "meh")
		assert.ErrorIs(t, err, ErrInvalidContent)
		_, err = svc.Submit(ctx, patron.ID, book.ID, 3, strings.Repeat("x", MaxContentLen+1))
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("content length counts characters, not bytes", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		// 100 characters, well over 120 bytes in UTF-8.
		fb, err := svc.Submit(ctx, patron.ID, book.ID, 4, strings.Repeat("ж", 100))
		require.NoError(t, err)
		assert.NotZero(t, fb.ID)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can revise rating and content", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		fb, err := svc.Submit(ctx, patron.ID, book.ID, 2, validContent)
		require.NoError(t, err)

		updated, err := svc.Edit(ctx, fb.ID, patron.ID, 5, "On a second read it grew on me.")
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Rating)

		var stored entities.Feedback
		require.NoError(t, db.DB.First(&stored, fb.ID).Error)
		assert.Equal(t, 5, stored.Rating)
	})

	t.Run("only the author can edit", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, book := seedBorrowed(t, db)

		fb, err := svc.Submit(ctx, patron.ID, book.ID, 2, validContent)
		require.NoError(t, err)

		_, err = svc.Edit(ctx, fb.ID, patron.ID+1, 5, validContent)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("editing a missing feedback fails", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		svc := NewService(db.DB, zap.NewNop())
		patron, _ := seedBorrowed(t, db)

		_, err := svc.Edit(ctx, 999, patron.ID, 5, validContent)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestForPatron(t *testing.T) {
	ctx := context.Background()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	svc := NewService(db.DB, zap.NewNop())
	patron, book := seedBorrowed(t, db)

	_, err := svc.Submit(ctx, patron.ID, book.ID, 4, validContent)
	require.NoError(t, err)

	byBook, err := svc.ForPatron(ctx, patron.ID)
	require.NoError(t, err)
	require.Len(t, byBook, 1)
	assert.Equal(t, 4, byBook[book.ID].Rating)
}
