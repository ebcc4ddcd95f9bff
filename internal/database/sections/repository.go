// Package sections provides database operations for catalog sections.
//
// The Miscellaneous section (fixed ID) can never be edited or deleted;
// deleting any other section reassigns its books to Miscellaneous.
package sections

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// ErrProtected is returned for edit/delete attempts on the Miscellaneous section.
var ErrProtected = errors.New("the miscellaneous section cannot be modified")

// Repository handles all section database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sections repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new section.
func (r *Repository) Create(section *entities.Section) error {
	if section.DateCreated.IsZero() {
		section.DateCreated = entities.Today()
	}
	return r.db.Create(section).Error
}

// GetByID retrieves a section by ID.
func (r *Repository) GetByID(id uint) (*entities.Section, error) {
	var section entities.Section
	err := r.db.First(&section, id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// GetByIDWithBooks retrieves a section with its books and their feedbacks
// preloaded for ranking.
func (r *Repository) GetByIDWithBooks(id uint) (*entities.Section, error) {
	var section entities.Section
	err := r.db.Preload("Books.Feedbacks").First(&section, id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// ListWithBooks returns all sections with books and feedbacks preloaded,
// newest sections first. Ranking happens in the ranking package.
func (r *Repository) ListWithBooks() ([]entities.Section, error) {
	var secs []entities.Section
	err := r.db.Preload("Books.Feedbacks").
		Order("date_created DESC").Find(&secs).Error
	return secs, err
}

// Search returns sections whose title contains the term, case-insensitive.
func (r *Repository) Search(term string) ([]entities.Section, error) {
	var secs []entities.Section
	pattern := "%" + term + "%"
	err := r.db.Preload("Books.Feedbacks").
		Where("LOWER(title) LIKE LOWER(?)", pattern).
		Order("date_created DESC").Find(&secs).Error
	return secs, err
}

// Update persists changes to a section. The Miscellaneous section is immutable.
func (r *Repository) Update(section *entities.Section) error {
	if section.IsMiscellaneous() {
		return ErrProtected
	}
	return r.db.Save(section).Error
}

// Delete removes a section, reassigning its books to Miscellaneous first.
// Both steps happen in one transaction so readers never observe orphans.
func (r *Repository) Delete(id uint) error {
	if id == entities.MiscellaneousSectionID {
		return ErrProtected
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var section entities.Section
		if err := tx.First(&section, id).Error; err != nil {
			return err
		}
		err := tx.Model(&entities.Book{}).Where("section_id = ?", id).
			Update("section_id", entities.MiscellaneousSectionID).Error
		if err != nil {
			return err
		}
		return tx.Delete(&entities.Section{}, id).Error
	})
}

// BookCount returns the number of books in a section.
func (r *Repository) BookCount(id uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("section_id = ?", id).Count(&count).Error
	return count, err
}
