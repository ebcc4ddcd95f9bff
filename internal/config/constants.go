package config

const (
	// DefaultDatabasePath is the default path for the main application database.
	DefaultDatabasePath = "./shelfwise.db"

	// DefaultUploadDir is the default root for stored pictures and PDFs.
	DefaultUploadDir = "./uploads"
)
