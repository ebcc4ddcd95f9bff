package http

import (
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/database/sections"
	"github.com/shelfwise/shelfwise/internal/feedback"
	"github.com/shelfwise/shelfwise/internal/ledger"
	"github.com/shelfwise/shelfwise/internal/stats"
	"github.com/shelfwise/shelfwise/internal/storage"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router. This replaces a long parameter list in NewRouter.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Logger   *zap.Logger

	// Domain services
	Ledger   *ledger.Service
	Feedback *feedback.Service
	Stats    *stats.Service

	// Catalog repositories
	Sections *sections.Repository
	Books    *books.Repository

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// File uploads
	Files     storage.FileStore
	UploadDir string

	// Application info
	Version string
}
