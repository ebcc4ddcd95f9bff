// Package stats computes usage projections for rendering elsewhere. The core
// exposes numbers only; chart drawing is an external concern.
package stats

import (
	"context"

	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// Service derives read-only statistics over the ledger and catalog.
type Service struct {
	db *gorm.DB
}

// NewService creates a stats service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// LoanCountsByPatron maps every section title to the number of loans (any
// status) the patron has of books in that section. Sections the patron never
// borrowed from are present with a zero count.
func (s *Service) LoanCountsByPatron(ctx context.Context, patronID uint) (map[string]int, error) {
	var sections []entities.Section
	if err := s.db.WithContext(ctx).Find(&sections).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(sections))
	for _, section := range sections {
		counts[section.Title] = 0
	}

	var loans []entities.IssuedBook
	err := s.db.WithContext(ctx).Preload("Book.Section").
		Where("user_id = ?", patronID).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		counts[loan.Book.Section.Title]++
	}
	return counts, nil
}
