package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/database/sections"
	"github.com/shelfwise/shelfwise/internal/entities"
	"github.com/shelfwise/shelfwise/internal/ledger"
	"github.com/shelfwise/shelfwise/internal/stats"
	"github.com/shelfwise/shelfwise/internal/storage"
)

// LibrarianController covers the staff surface: catalog management, the
// request queue and loan administration.
type LibrarianController struct {
	ledger   *ledger.Service
	stats    *stats.Service
	sections *sections.Repository
	books    *books.Repository
	users    *auth.Service
	files    storage.FileStore
	logger   *zap.Logger
}

func NewLibrarianController(ledgerService *ledger.Service, statsService *stats.Service, sectionsRepo *sections.Repository, booksRepo *books.Repository, authService *auth.Service, files storage.FileStore, logger *zap.Logger) *LibrarianController {
	return &LibrarianController{
		ledger:   ledgerService,
		stats:    statsService,
		sections: sectionsRepo,
		books:    booksRepo,
		users:    authService,
		files:    files,
		logger:   logger,
	}
}

// --- Sections ---

func (controller *LibrarianController) CreateSection(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		respondBadRequest(c, "title is required")
		return
	}

	section := &entities.Section{
		Title:       title,
		Description: c.PostForm("description"),
		Picture:     entities.DefaultSectionPicture,
		DateCreated: time.Now().UTC(),
	}

	data, ext, ok := readUpload(c, "picture", pictureExts)
	if !ok {
		return
	}
	if data != nil {
		ref, err := controller.files.Store(data, ext)
		if err != nil {
			respondInternalError(c, controller.logger, err, "store section picture")
			return
		}
		section.Picture = ref
	}

	if err := controller.sections.Create(section); err != nil {
		respondInternalError(c, controller.logger, err, "create section")
		return
	}
	respondCreated(c, section)
}

func (controller *LibrarianController) UpdateSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	section, err := controller.sections.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "section")
			return
		}
		respondInternalError(c, controller.logger, err, "get section")
		return
	}
	if section.IsMiscellaneous() {
		respondError(c, http.StatusForbidden, sections.ErrProtected.Error())
		return
	}

	if title := strings.TrimSpace(c.PostForm("title")); title != "" {
		section.Title = title
	}
	if description := c.PostForm("description"); description != "" {
		section.Description = description
	}

	data, ext, ok := readUpload(c, "picture", pictureExts)
	if !ok {
		return
	}
	if data != nil {
		ref, err := controller.files.Store(data, ext)
		if err != nil {
			respondInternalError(c, controller.logger, err, "store section picture")
			return
		}
		old := section.Picture
		section.Picture = ref
		if err := controller.files.Delete(old); err != nil {
			controller.logger.Warn("failed to delete replaced section picture", zap.String("ref", old), zap.Error(err))
		}
	}

	if err := controller.sections.Update(section); err != nil {
		if errors.Is(err, sections.ErrProtected) {
			respondError(c, http.StatusForbidden, err.Error())
			return
		}
		respondInternalError(c, controller.logger, err, "update section")
		return
	}
	c.JSON(http.StatusOK, section)
}

// DeleteSection removes a section and reassigns its books to Miscellaneous.
func (controller *LibrarianController) DeleteSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	section, err := controller.sections.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "section")
			return
		}
		respondInternalError(c, controller.logger, err, "get section")
		return
	}

	if err := controller.sections.Delete(id); err != nil {
		if errors.Is(err, sections.ErrProtected) {
			respondError(c, http.StatusForbidden, err.Error())
			return
		}
		respondInternalError(c, controller.logger, err, "delete section")
		return
	}

	if err := controller.files.Delete(section.Picture); err != nil {
		controller.logger.Warn("failed to delete section picture", zap.String("ref", section.Picture), zap.Error(err))
	}
	respondSuccess(c, "section deleted, its books moved to Miscellaneous")
}

// --- Books ---

func (controller *LibrarianController) CreateBook(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	author := strings.TrimSpace(c.PostForm("author"))
	if title == "" || author == "" {
		respondBadRequest(c, "title and author are required")
		return
	}

	sectionID := entities.MiscellaneousSectionID
	if raw := c.PostForm("section_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid section_id")
			return
		}
		sectionID = uint(parsed)
	}
	if _, err := controller.sections.GetByID(sectionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "section")
			return
		}
		respondInternalError(c, controller.logger, err, "get section")
		return
	}

	book := &entities.Book{
		Title:       title,
		Author:      author,
		Description: c.PostForm("description"),
		Picture:     entities.DefaultBookPicture,
		PDFFile:     entities.DefaultBookPDF,
		SectionID:   sectionID,
		DateCreated: time.Now().UTC(),
	}

	if !controller.attachBookFiles(c, book) {
		return
	}

	if err := controller.books.Create(book); err != nil {
		respondInternalError(c, controller.logger, err, "create book")
		return
	}
	respondCreated(c, book)
}

func (controller *LibrarianController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, controller.logger, err, "get book")
		return
	}

	if title := strings.TrimSpace(c.PostForm("title")); title != "" {
		book.Title = title
	}
	if author := strings.TrimSpace(c.PostForm("author")); author != "" {
		book.Author = author
	}
	if description := c.PostForm("description"); description != "" {
		book.Description = description
	}
	if raw := c.PostForm("section_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid section_id")
			return
		}
		if _, err := controller.sections.GetByID(uint(parsed)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondNotFound(c, "section")
				return
			}
			respondInternalError(c, controller.logger, err, "get section")
			return
		}
		book.SectionID = uint(parsed)
	}

	oldPicture, oldPDF := book.Picture, book.PDFFile
	if !controller.attachBookFiles(c, book) {
		return
	}

	if err := controller.books.Update(book); err != nil {
		respondInternalError(c, controller.logger, err, "update book")
		return
	}

	if book.Picture != oldPicture {
		if err := controller.files.Delete(oldPicture); err != nil {
			controller.logger.Warn("failed to delete replaced book picture", zap.String("ref", oldPicture), zap.Error(err))
		}
	}
	if book.PDFFile != oldPDF {
		if err := controller.files.Delete(oldPDF); err != nil {
			controller.logger.Warn("failed to delete replaced book pdf", zap.String("ref", oldPDF), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, book)
}

// attachBookFiles stores uploaded picture/pdf files and points the book at
// them. Returns false when a response has already been written.
func (controller *LibrarianController) attachBookFiles(c *gin.Context, book *entities.Book) bool {
	data, ext, ok := readUpload(c, "picture", pictureExts)
	if !ok {
		return false
	}
	if data != nil {
		ref, err := controller.files.Store(data, ext)
		if err != nil {
			respondInternalError(c, controller.logger, err, "store book picture")
			return false
		}
		book.Picture = ref
	}

	data, ext, ok = readUpload(c, "pdf", pdfExts)
	if !ok {
		return false
	}
	if data != nil {
		ref, err := controller.files.Store(data, ext)
		if err != nil {
			respondInternalError(c, controller.logger, err, "store book pdf")
			return false
		}
		book.PDFFile = ref
	}
	return true
}

// DeleteBook removes a book along with its requests, loans and feedback.
func (controller *LibrarianController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, controller.logger, err, "get book")
		return
	}

	if err := controller.books.Delete(id); err != nil {
		respondInternalError(c, controller.logger, err, "delete book")
		return
	}

	for _, ref := range []string{book.Picture, book.PDFFile} {
		if err := controller.files.Delete(ref); err != nil {
			controller.logger.Warn("failed to delete book file", zap.String("ref", ref), zap.Error(err))
		}
	}
	respondSuccess(c, "book deleted")
}

// --- Request Queue ---

func (controller *LibrarianController) PendingRequests(c *gin.Context) {
	requests, err := controller.ledger.PendingRequests(c.Request.Context())
	if err != nil {
		respondDomainError(c, controller.logger, err, "pending requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

func (controller *LibrarianController) RejectedRequests(c *gin.Context) {
	requests, err := controller.ledger.RejectedRequests(c.Request.Context())
	if err != nil {
		respondDomainError(c, controller.logger, err, "rejected requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

func (controller *LibrarianController) CurrentLoans(c *gin.Context) {
	loans, err := controller.ledger.CurrentLoans(c.Request.Context())
	if err != nil {
		respondDomainError(c, controller.logger, err, "current loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans, "count": len(loans)})
}

// Grant accepts a pending request and opens the loan.
func (controller *LibrarianController) Grant(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := controller.ledger.Grant(c.Request.Context(), requestID, auth.GetUserID(c))
	if err != nil {
		respondDomainError(c, controller.logger, err, "grant request")
		return
	}
	respondCreated(c, loan)
}

// Reject declines a pending request.
func (controller *LibrarianController) Reject(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.ledger.Reject(c.Request.Context(), requestID, auth.GetUserID(c)); err != nil {
		respondDomainError(c, controller.logger, err, "reject request")
		return
	}
	respondSuccess(c, "request rejected")
}

// Revoke closes a current loan on the librarian's initiative.
func (controller *LibrarianController) Revoke(c *gin.Context) {
	issueID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.ledger.Revoke(c.Request.Context(), issueID, auth.GetUserID(c)); err != nil {
		respondDomainError(c, controller.logger, err, "revoke loan")
		return
	}
	respondSuccess(c, "loan revoked")
}

// PatronStats reports a patron's all-time loan counts per section.
func (controller *LibrarianController) PatronStats(c *gin.Context) {
	patronID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	patron, err := controller.users.GetUserByID(c.Request.Context(), patronID)
	if err != nil {
		respondDomainError(c, controller.logger, err, "get patron")
		return
	}

	counts, err := controller.stats.LoanCountsByPatron(c.Request.Context(), patronID)
	if err != nil {
		respondInternalError(c, controller.logger, err, "patron stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patron":           gin.H{"id": patron.ID, "name": patron.Name, "username": patron.Username},
		"loans_by_section": counts,
	})
}
