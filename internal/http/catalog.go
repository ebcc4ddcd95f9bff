package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/database/sections"
	"github.com/shelfwise/shelfwise/internal/entities"
	"github.com/shelfwise/shelfwise/internal/ranking"
)

// CatalogController serves the browsing views: ranked sections, ranked
// books within a section, book detail with ranked feedback, and search.
type CatalogController struct {
	sections *sections.Repository
	books    *books.Repository
	logger   *zap.Logger
}

func NewCatalogController(sections *sections.Repository, books *books.Repository, logger *zap.Logger) *CatalogController {
	return &CatalogController{
		sections: sections,
		books:    books,
		logger:   logger,
	}
}

// sectionSummary is the list-view shape: full book payloads are omitted.
type sectionSummary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
	BookCount   int    `json:"book_count"`
}

func summarizeSections(secs []entities.Section) []sectionSummary {
	summaries := make([]sectionSummary, 0, len(secs))
	for _, s := range secs {
		summaries = append(summaries, sectionSummary{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Picture:     s.Picture,
			BookCount:   len(s.Books),
		})
	}
	return summaries
}

// bookSummary carries the accumulated rating alongside the book fields.
type bookSummary struct {
	entities.Book
	RatingSum int `json:"rating_sum"`
}

func summarizeBooks(bs []entities.Book) []bookSummary {
	summaries := make([]bookSummary, 0, len(bs))
	for _, b := range bs {
		sum := b.RatingSum()
		b.Feedbacks = nil
		summaries = append(summaries, bookSummary{Book: b, RatingSum: sum})
	}
	return summaries
}

// ListSections returns all sections ordered by popularity, with the
// Miscellaneous section always listed last.
func (controller *CatalogController) ListSections(c *gin.Context) {
	secs, err := controller.sections.ListWithBooks()
	if err != nil {
		respondInternalError(c, controller.logger, err, "list sections")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": summarizeSections(ranking.Sections(secs))})
}

// GetSection returns one section with its books ranked by rating.
func (controller *CatalogController) GetSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	section, err := controller.sections.GetByIDWithBooks(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "section")
			return
		}
		respondInternalError(c, controller.logger, err, "get section")
		return
	}

	ranked := summarizeBooks(ranking.Books(section.Books))
	section.Books = nil
	c.JSON(http.StatusOK, gin.H{"section": section, "books": ranked})
}

// GetBook returns a book with its feedback ranked best-first.
func (controller *CatalogController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByIDWithDetails(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, controller.logger, err, "get book")
		return
	}

	feedbacks := ranking.Feedbacks(book.Feedbacks)
	ratingSum := book.RatingSum()
	book.Feedbacks = nil
	c.JSON(http.StatusOK, gin.H{
		"book":       book,
		"section":    gin.H{"id": book.Section.ID, "title": book.Section.Title},
		"rating_sum": ratingSum,
		"feedbacks":  feedbacks,
	})
}

// Search matches the query against section titles, book titles and book
// authors. Matching sections are ordered purely by popularity; the
// Miscellaneous pinning does not apply to search relevance.
func (controller *CatalogController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}

	secs, err := controller.sections.Search(query)
	if err != nil {
		respondInternalError(c, controller.logger, err, "search sections")
		return
	}
	byTitle, err := controller.books.SearchByTitle(query)
	if err != nil {
		respondInternalError(c, controller.logger, err, "search books by title")
		return
	}
	byAuthor, err := controller.books.SearchByAuthor(query)
	if err != nil {
		respondInternalError(c, controller.logger, err, "search books by author")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":           query,
		"sections":        summarizeSections(ranking.SectionsByRelevance(secs)),
		"books_by_title":  summarizeBooks(ranking.Books(byTitle)),
		"books_by_author": summarizeBooks(ranking.Books(byAuthor)),
	})
}
