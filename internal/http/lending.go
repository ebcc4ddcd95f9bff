package http

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/entities"
	"github.com/shelfwise/shelfwise/internal/feedback"
	"github.com/shelfwise/shelfwise/internal/ledger"
	"github.com/shelfwise/shelfwise/internal/ranking"
	"github.com/shelfwise/shelfwise/internal/stats"
)

// LendingController handles the patron side of the lending flow: borrow
// requests, the my-books view, returns and reading access.
type LendingController struct {
	ledger    *ledger.Service
	feedback  *feedback.Service
	stats     *stats.Service
	books     *books.Repository
	uploadDir string
	logger    *zap.Logger
}

func NewLendingController(ledgerService *ledger.Service, feedbackService *feedback.Service, statsService *stats.Service, booksRepo *books.Repository, uploadDir string, logger *zap.Logger) *LendingController {
	return &LendingController{
		ledger:    ledgerService,
		feedback:  feedbackService,
		stats:     statsService,
		books:     booksRepo,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

type borrowRequest struct {
	Days int `json:"days"`
}

// SubmitRequest places a borrow request for 1-7 days.
func (controller *LendingController) SubmitRequest(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "days is required")
		return
	}

	request, err := controller.ledger.SubmitRequest(c.Request.Context(), auth.GetUserID(c), bookID, req.Days)
	if err != nil {
		respondDomainError(c, controller.logger, err, "submit request")
		return
	}
	respondCreated(c, request)
}

// MyBooks returns the patron's shelf: current loans due soonest first,
// completed loans newest first, their requests, and which books already
// carry their feedback.
func (controller *LendingController) MyBooks(c *gin.Context) {
	ctx := c.Request.Context()
	patronID := auth.GetUserID(c)

	loans, err := controller.ledger.LoansForPatron(ctx, patronID)
	if err != nil {
		respondDomainError(c, controller.logger, err, "list loans")
		return
	}
	requests, err := controller.ledger.RequestsForPatron(ctx, patronID)
	if err != nil {
		respondDomainError(c, controller.logger, err, "list requests")
		return
	}
	given, err := controller.feedback.ForPatron(ctx, patronID)
	if err != nil {
		respondDomainError(c, controller.logger, err, "list feedback")
		return
	}

	reviewed := make([]uint, 0, len(given))
	for bookID := range given {
		reviewed = append(reviewed, bookID)
	}

	c.JSON(http.StatusOK, gin.H{
		"current":        ranking.CurrentLoans(loans),
		"completed":      ranking.CompletedLoans(loans),
		"requests":       requests,
		"reviewed_books": reviewed,
	})
}

// Return hands a borrowed book back, closing the loan as of today.
func (controller *LendingController) Return(c *gin.Context) {
	issueID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.ledger.Return(c.Request.Context(), issueID, auth.GetUserID(c)); err != nil {
		respondDomainError(c, controller.logger, err, "return loan")
		return
	}
	respondSuccess(c, "book returned")
}

// DeleteRequest withdraws one of the patron's own pending requests.
func (controller *LendingController) DeleteRequest(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.ledger.DeleteRequest(c.Request.Context(), requestID, auth.GetUserID(c)); err != nil {
		respondDomainError(c, controller.logger, err, "delete request")
		return
	}
	respondSuccess(c, "request withdrawn")
}

// ReadBook serves the book's PDF. Patrons must currently hold the book on
// loan; librarians can always read.
func (controller *LendingController) ReadBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByID(bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, controller.logger, err, "get book")
		return
	}

	if auth.GetUserRole(c) != entities.RoleLibrarian {
		held, err := controller.ledger.HoldsCurrentLoan(c.Request.Context(), auth.GetUserID(c), bookID)
		if err != nil {
			respondDomainError(c, controller.logger, err, "check loan")
			return
		}
		if !held {
			respondError(c, http.StatusForbidden, "you can only read books you currently hold on loan")
			return
		}
	}

	c.FileAttachment(filepath.Join(controller.uploadDir, book.PDFFile), book.Title+".pdf")
}

// MyStats reports the patron's all-time loan counts per section.
func (controller *LendingController) MyStats(c *gin.Context) {
	counts, err := controller.stats.LoanCountsByPatron(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, controller.logger, err, "patron stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans_by_section": counts})
}
