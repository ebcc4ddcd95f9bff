// Package books provides database operations for catalog books.
package books

import (
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new book.
func (r *Repository) Create(book *entities.Book) error {
	if book.DateCreated.IsZero() {
		book.DateCreated = entities.Today()
	}
	if book.SectionID == 0 {
		book.SectionID = entities.MiscellaneousSectionID
	}
	return r.db.Create(book).Error
}

// GetByID retrieves a book by ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByIDWithDetails retrieves a book with its section and feedbacks
// (and feedback authors) preloaded for the detail view.
func (r *Repository) GetByIDWithDetails(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Section").Preload("Feedbacks.User").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListWithFeedbacks returns all books with feedbacks preloaded for ranking.
func (r *Repository) ListWithFeedbacks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Feedbacks").Find(&books).Error
	return books, err
}

// SearchByTitle returns books whose title contains the term, case-insensitive.
func (r *Repository) SearchByTitle(term string) ([]entities.Book, error) {
	return r.search("LOWER(title) LIKE LOWER(?)", term)
}

// SearchByAuthor returns books whose author contains the term, case-insensitive.
func (r *Repository) SearchByAuthor(term string) ([]entities.Book, error) {
	return r.search("LOWER(author) LIKE LOWER(?)", term)
}

func (r *Repository) search(condition, term string) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + term + "%"
	err := r.db.Preload("Feedbacks").Where(condition, pattern).Find(&books).Error
	return books, err
}

// Update persists changes to a book record.
func (r *Repository) Update(book *entities.Book) error {
	return r.db.Save(book).Error
}

// Delete removes a book together with its requests, loans and feedbacks.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.IssuedBook{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Feedback{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
