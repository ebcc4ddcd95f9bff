package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())

	users := NewUsersController(cfg.AuthService, cfg.SessionManager, cfg.Files, cfg.Logger)
	catalog := NewCatalogController(cfg.Sections, cfg.Books, cfg.Logger)
	lending := NewLendingController(cfg.Ledger, cfg.Feedback, cfg.Stats, cfg.Books, cfg.UploadDir, cfg.Logger)
	feedbackController := NewFeedbackController(cfg.Feedback, cfg.Logger)
	librarian := NewLibrarianController(cfg.Ledger, cfg.Stats, cfg.Sections, cfg.Books, cfg.AuthService, cfg.Files, cfg.Logger)
	files := NewFilesController(cfg.UploadDir)
	health := NewHealthController(cfg.Database, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Stored pictures are public; PDFs go through the loan-gated endpoint
	router.GET("/files/:ref", files.Serve)

	// Account endpoints open to anonymous callers
	router.POST("/api/auth/register", users.Register)
	router.POST("/api/auth/login", users.Login)
	router.POST("/api/auth/reset-request", users.RequestPasswordReset)
	router.POST("/api/auth/reset-password", users.ResetPassword)

	// Everything below requires a signed-in user
	authed := router.Group("", cfg.AuthMiddleware.RequireAuth())

	authed.POST("/api/auth/logout", users.Logout)

	// Profile
	authed.GET("/api/profile", users.Profile)
	authed.POST("/api/profile", users.UpdateProfile)
	authed.POST("/api/profile/password", users.ChangePassword)
	authed.POST("/api/profile/delete", users.DeleteAccount)

	// Catalog browsing
	authed.GET("/api/sections", catalog.ListSections)
	authed.GET("/api/sections/:id", catalog.GetSection)
	authed.GET("/api/books/:id", catalog.GetBook)
	authed.GET("/api/search", catalog.Search)
	authed.GET("/api/books/:id/read", lending.ReadBook)

	// Patron lending flow
	patron := authed.Group("", cfg.AuthMiddleware.RequireRole(entities.RolePatron))
	patron.POST("/api/books/:id/request", lending.SubmitRequest)
	patron.GET("/api/my-books", lending.MyBooks)
	patron.POST("/api/loans/:id/return", lending.Return)
	patron.DELETE("/api/requests/:id", lending.DeleteRequest)
	patron.GET("/api/my-stats", lending.MyStats)
	patron.POST("/api/books/:id/feedback", feedbackController.Submit)
	patron.PATCH("/api/feedback/:id", feedbackController.Edit)

	// Staff surface
	staff := authed.Group("/api/librarian", cfg.AuthMiddleware.RequireRole(entities.RoleLibrarian))
	staff.POST("/sections", librarian.CreateSection)
	staff.POST("/sections/:id", librarian.UpdateSection)
	staff.DELETE("/sections/:id", librarian.DeleteSection)
	staff.POST("/books", librarian.CreateBook)
	staff.POST("/books/:id", librarian.UpdateBook)
	staff.DELETE("/books/:id", librarian.DeleteBook)
	staff.GET("/requests", librarian.PendingRequests)
	staff.GET("/requests/rejected", librarian.RejectedRequests)
	staff.GET("/loans", librarian.CurrentLoans)
	staff.POST("/requests/:id/grant", librarian.Grant)
	staff.POST("/requests/:id/reject", librarian.Reject)
	staff.POST("/loans/:id/revoke", librarian.Revoke)
	staff.GET("/patrons/:id/stats", librarian.PatronStats)

	return router
}
