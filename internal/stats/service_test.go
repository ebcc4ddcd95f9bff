package stats

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()

	dbPath := "./test_stats_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.New(config.Database{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestLoanCountsByPatron(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	svc := NewService(db.DB)

	patron := &entities.User{Name: "Alice", Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: entities.RolePatron}
	require.NoError(t, db.DB.Create(patron).Error)

	fiction := &entities.Section{Title: "Fiction", DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(fiction).Error)
	empty := &entities.Section{Title: "Untouched", DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(empty).Error)

	dune := &entities.Book{Title: "Dune", Author: "Herbert", SectionID: fiction.ID, DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(dune).Error)
	misc := &entities.Book{Title: "Almanac", Author: "Various", SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(misc).Error)

	// Two loans of the same fiction book (one still out), one from Miscellaneous.
	for _, loan := range []*entities.IssuedBook{
		{UserID: patron.ID, IssuedBy: patron.ID, BookID: dune.ID, FromDate: entities.Today(), ToDate: entities.Today(), Status: entities.LoanReturned},
		{UserID: patron.ID, IssuedBy: patron.ID, BookID: dune.ID, FromDate: entities.Today(), ToDate: entities.Today(), Status: entities.LoanCurrent},
		{UserID: patron.ID, IssuedBy: patron.ID, BookID: misc.ID, FromDate: entities.Today(), ToDate: entities.Today(), Status: entities.LoanReturned},
	} {
		require.NoError(t, db.DB.Create(loan).Error)
	}

	counts, err := svc.LoanCountsByPatron(context.Background(), patron.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, counts["Fiction"])
	assert.Equal(t, 1, counts["Miscellaneous"])
	// Sections without loans still appear, zero-filled.
	assert.Contains(t, counts, "Untouched")
	assert.Equal(t, 0, counts["Untouched"])
}
