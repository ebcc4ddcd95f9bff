// Package feedback stores per-patron, per-book ratings and comments, gated
// by loan history: a patron may review a book once, and only after having
// borrowed it at least once.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/entities"
)

const (
	MinContentLen = 10
	MaxContentLen = 120
)

var (
	// ErrNotBorrowed is returned when the patron has never held a loan of
	// the book, current or historical.
	ErrNotBorrowed = errors.New("you can only give feedback on books you borrowed")

	// ErrDuplicateFeedback is returned on a second feedback for the same
	// (patron, book) pair. Existing feedback can be edited instead.
	ErrDuplicateFeedback = errors.New("you already gave feedback on this book")

	// ErrForbidden is returned when editing someone else's feedback.
	ErrForbidden = errors.New("not allowed")

	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRating is returned for a rating outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidContent is returned for comments outside 10-120 characters.
	ErrInvalidContent = fmt.Errorf("comment must be %d-%d characters", MinContentLen, MaxContentLen)
)

// Service handles feedback submission and editing.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a feedback service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Submit creates a patron's feedback for a book they have borrowed.
// Uniqueness and the borrow gate are re-checked inside the transaction.
func (s *Service) Submit(ctx context.Context, patronID, bookID uint, rating int, content string) (*entities.Feedback, error) {
	if err := validate(rating, content); err != nil {
		return nil, err
	}

	var fb *entities.Feedback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Any loan record suffices, returned ones included.
		var borrowed int64
		err := tx.Model(&entities.IssuedBook{}).
			Where("user_id = ? AND book_id = ?", patronID, bookID).
			Count(&borrowed).Error
		if err != nil {
			return err
		}
		if borrowed == 0 {
			return ErrNotBorrowed
		}

		var existing int64
		err = tx.Model(&entities.Feedback{}).
			Where("user_id = ? AND book_id = ?", patronID, bookID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateFeedback
		}

		fb = &entities.Feedback{
			UserID:      patronID,
			BookID:      bookID,
			Rating:      rating,
			Content:     content,
			DateCreated: entities.Today(),
		}
		return tx.Create(fb).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback submitted",
		zap.Uint("patron_id", patronID),
		zap.Uint("book_id", bookID),
		zap.Int("rating", rating))
	return fb, nil
}

// Edit updates a patron's own feedback in place. The borrow gate is not
// re-checked: having fed back once implies the book was held once.
func (s *Service) Edit(ctx context.Context, feedbackID, patronID uint, rating int, content string) (*entities.Feedback, error) {
	if err := validate(rating, content); err != nil {
		return nil, err
	}

	var fb entities.Feedback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&fb, feedbackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if fb.UserID != patronID {
			return ErrForbidden
		}

		fb.Rating = rating
		fb.Content = content
		return tx.Save(&fb).Error
	})
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// ForPatron returns all of a patron's feedbacks keyed by book ID.
func (s *Service) ForPatron(ctx context.Context, patronID uint) (map[uint]entities.Feedback, error) {
	var feedbacks []entities.Feedback
	err := s.db.WithContext(ctx).
		Where("user_id = ?", patronID).
		Find(&feedbacks).Error
	if err != nil {
		return nil, err
	}
	byBook := make(map[uint]entities.Feedback, len(feedbacks))
	for _, fb := range feedbacks {
		byBook[fb.BookID] = fb
	}
	return byBook, nil
}

func validate(rating int, content string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if n := utf8.RuneCountInString(content); n < MinContentLen || n > MaxContentLen {
		return ErrInvalidContent
	}
	return nil
}
