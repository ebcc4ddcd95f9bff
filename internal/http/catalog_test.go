package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/database/sections"
	"github.com/shelfwise/shelfwise/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.New(config.Database{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func seedSectionWithBooks(t *testing.T, db *database.Database, title string, count int) *entities.Section {
	t.Helper()
	section := &entities.Section{Title: title, DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(section).Error)
	for i := 0; i < count; i++ {
		book := &entities.Book{
			Title:     title + " book " + string(rune('A'+i)),
			Author:    "Author",
			SectionID: section.ID, DateCreated: entities.Today(),
		}
		require.NoError(t, db.DB.Create(book).Error)
	}
	return section
}

func TestCatalogController_ListSections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Make Miscellaneous the biggest section; it must still be listed last.
	for i := 0; i < 4; i++ {
		book := &entities.Book{
			Title:     "Misc " + string(rune('A'+i)),
			Author:    "Various",
			SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today(),
		}
		require.NoError(t, db.DB.Create(book).Error)
	}
	seedSectionWithBooks(t, db, "Fiction", 2)
	seedSectionWithBooks(t, db, "History", 3)

	controller := NewCatalogController(sections.NewRepository(db.DB), books.NewRepository(db.DB), zap.NewNop())
	router := gin.New()
	router.GET("/api/sections", controller.ListSections)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/sections", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sections []sectionSummary `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sections, 3)
	assert.Equal(t, "History", body.Sections[0].Title)
	assert.Equal(t, "Fiction", body.Sections[1].Title)
	assert.Equal(t, "Miscellaneous", body.Sections[2].Title)
	assert.Equal(t, 4, body.Sections[2].BookCount)
}

func TestCatalogController_GetBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	controller := NewCatalogController(sections.NewRepository(db.DB), books.NewRepository(db.DB), zap.NewNop())
	router := gin.New()
	router.GET("/api/books/:id", controller.GetBook)

	t.Run("returns 404 for missing books", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/books/42", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("includes the rating sum and ranked feedback", func(t *testing.T) {
		reader := &entities.User{Name: "Alice", Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
		require.NoError(t, db.DB.Create(reader).Error)
		book := &entities.Book{Title: "Dune", Author: "Herbert", SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today()}
		require.NoError(t, db.DB.Create(book).Error)
		for _, rating := range []int{2, 5} {
			fb := &entities.Feedback{UserID: reader.ID, BookID: book.ID, Rating: rating, Content: "A thoroughly enjoyable read.", DateCreated: entities.Today()}
			require.NoError(t, db.DB.Create(fb).Error)
		}

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/api/books/%d", book.ID), nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			RatingSum int                 `json:"rating_sum"`
			Feedbacks []entities.Feedback `json:"feedbacks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 7, body.RatingSum)
		require.Len(t, body.Feedbacks, 2)
		assert.Equal(t, 5, body.Feedbacks[0].Rating)
	})
}

func TestCatalogController_Search(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedSectionWithBooks(t, db, "Science Fiction", 1)
	book := &entities.Book{Title: "A Brief History of Time", Author: "Stephen Hawking", SectionID: entities.MiscellaneousSectionID, DateCreated: entities.Today()}
	require.NoError(t, db.DB.Create(book).Error)

	controller := NewCatalogController(sections.NewRepository(db.DB), books.NewRepository(db.DB), zap.NewNop())
	router := gin.New()
	router.GET("/api/search", controller.Search)

	t.Run("requires a query", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/search", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("matches sections, titles and authors", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/search?q=histor", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Sections      []sectionSummary `json:"sections"`
			BooksByTitle  []bookSummary    `json:"books_by_title"`
			BooksByAuthor []bookSummary    `json:"books_by_author"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Empty(t, body.Sections)
		require.Len(t, body.BooksByTitle, 1)
		assert.Equal(t, "A Brief History of Time", body.BooksByTitle[0].Title)
		assert.Empty(t, body.BooksByAuthor)
	})
}
