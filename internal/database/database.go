package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/entities"
)

// Database wraps the shared gorm connection.
type Database struct {
	DB *gorm.DB
}

// New opens the configured database, migrates the schema and seeds the
// Miscellaneous section.
func New(cfg config.Database) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Section{},
		&entities.Book{},
		&entities.BookRequest{},
		&entities.IssuedBook{},
		&entities.Feedback{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedMiscellaneous(); err != nil {
		return nil, fmt.Errorf("failed to seed miscellaneous section: %w", err)
	}

	log.Printf("Database initialized (%s)", dialectorName(cfg))

	return database, nil
}

func dialectorName(cfg config.Database) string {
	if cfg.Driver == "" {
		return "sqlite"
	}
	return cfg.Driver
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// seedMiscellaneous creates the fallback section with its fixed ID if it does
// not exist yet. Books from deleted sections are reassigned here.
func (d *Database) seedMiscellaneous() error {
	var existing entities.Section
	err := d.DB.First(&existing, entities.MiscellaneousSectionID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	section := entities.Section{
		ID:          entities.MiscellaneousSectionID,
		Title:       "Miscellaneous",
		Description: "Books that do not belong to any other section.",
		Picture:     entities.DefaultSectionPicture,
		DateCreated: entities.Today(),
	}
	if err := d.DB.Create(&section).Error; err != nil {
		return err
	}
	log.Printf("Created section: %s", section.Title)
	return nil
}
