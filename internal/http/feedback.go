package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/feedback"
)

// FeedbackController handles patron reviews on borrowed books.
type FeedbackController struct {
	service *feedback.Service
	logger  *zap.Logger
}

func NewFeedbackController(service *feedback.Service, logger *zap.Logger) *FeedbackController {
	return &FeedbackController{
		service: service,
		logger:  logger,
	}
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

// Submit creates the patron's feedback on a book they have borrowed at some
// point. One feedback per patron per book.
func (controller *FeedbackController) Submit(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "rating and content are required")
		return
	}

	created, err := controller.service.Submit(c.Request.Context(), auth.GetUserID(c), bookID, req.Rating, req.Content)
	if err != nil {
		respondDomainError(c, controller.logger, err, "submit feedback")
		return
	}
	respondCreated(c, created)
}

// Edit updates the patron's own feedback.
func (controller *FeedbackController) Edit(c *gin.Context) {
	feedbackID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "rating and content are required")
		return
	}

	updated, err := controller.service.Edit(c.Request.Context(), feedbackID, auth.GetUserID(c), req.Rating, req.Content)
	if err != nil {
		respondDomainError(c, controller.logger, err, "edit feedback")
		return
	}
	c.JSON(http.StatusOK, updated)
}
