// Package ledger implements the borrowing lifecycle engine: book requests,
// issued loans, and the lazy expiry sweeps that keep both honest.
//
// Requests move pending -> accepted|rejected; loans move current -> returned.
// Both transitions are terminal. A pending request older than seven days is
// rejected by the next sweep; a current loan past its due date is returned by
// the next sweep with its due date left untouched, whereas an explicit return
// or revocation stamps the due date with today.
//
// Every mutation runs inside a transaction and re-checks its preconditions
// with a guarded update, so two concurrent grants on the same request cannot
// both succeed. A transient transaction failure is retried once before being
// surfaced as ErrConflict.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// RequestExpiry is how long a request may stay pending before a sweep
// rejects it.
const RequestExpiry = 7 * 24 * time.Hour

// MaxActive caps a patron's combined pending requests and current loans.
const MaxActive = 5

// Service owns all request and loan state transitions.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger

	// now is injectable for tests; defaults to entities.Today.
	now func() time.Time
}

// NewService creates a ledger service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger, now: entities.Today}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitRequest records a patron's ask to borrow a book for 1-7 days.
func (s *Service) SubmitRequest(ctx context.Context, patronID, bookID uint, days int) (*entities.BookRequest, error) {
	if days < 1 || days > 7 {
		return nil, ErrInvalidDays
	}

	var request *entities.BookRequest
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweep(tx); err != nil {
			return err
		}

		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return notFoundOr(err)
		}

		var held int64
		err := tx.Model(&entities.IssuedBook{}).
			Where("user_id = ? AND book_id = ? AND status = ?", patronID, bookID, entities.LoanCurrent).
			Count(&held).Error
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrAlreadyIssued
		}

		var pending int64
		err = tx.Model(&entities.BookRequest{}).
			Where("user_id = ? AND book_id = ? AND status = ?", patronID, bookID, entities.RequestPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrAlreadyRequested
		}

		active, err := s.activeCount(tx, patronID)
		if err != nil {
			return err
		}
		if active >= MaxActive {
			return ErrQuotaExceeded
		}

		request = &entities.BookRequest{
			UserID:      patronID,
			BookID:      bookID,
			Days:        days,
			Status:      entities.RequestPending,
			DateCreated: s.now(),
		}
		return tx.Create(request).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request submitted",
		zap.Uint("patron_id", patronID),
		zap.Uint("book_id", bookID),
		zap.Int("days", days))
	return request, nil
}

// Grant accepts a pending request and opens a loan running from today for the
// requested number of days. Exactly one of two concurrent grants succeeds;
// the loser sees ErrNotPending.
func (s *Service) Grant(ctx context.Context, requestID, librarianID uint) (*entities.IssuedBook, error) {
	var loan *entities.IssuedBook
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweep(tx); err != nil {
			return err
		}

		var request entities.BookRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			return notFoundOr(err)
		}

		// Guarded update: the WHERE on status is the idempotency check.
		result := tx.Model(&entities.BookRequest{}).
			Where("id = ? AND status = ?", requestID, entities.RequestPending).
			Update("status", entities.RequestAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotPending
		}

		today := s.now()
		loan = &entities.IssuedBook{
			UserID:   request.UserID,
			IssuedBy: librarianID,
			BookID:   request.BookID,
			FromDate: today,
			ToDate:   today.AddDate(0, 0, request.Days),
			Status:   entities.LoanCurrent,
		}
		return tx.Create(loan).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request granted",
		zap.Uint("request_id", requestID),
		zap.Uint("librarian_id", librarianID),
		zap.Uint("issue_id", loan.ID))
	return loan, nil
}

// Reject marks a pending request rejected.
func (s *Service) Reject(ctx context.Context, requestID, librarianID uint) error {
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var request entities.BookRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			return notFoundOr(err)
		}

		result := tx.Model(&entities.BookRequest{}).
			Where("id = ? AND status = ?", requestID, entities.RequestPending).
			Update("status", entities.RequestRejected)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotPending
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("request rejected",
		zap.Uint("request_id", requestID),
		zap.Uint("librarian_id", librarianID))
	return nil
}

// Revoke ends a current loan by librarian action, stamping the due date with
// today.
func (s *Service) Revoke(ctx context.Context, issueID, librarianID uint) error {
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var loan entities.IssuedBook
		if err := tx.First(&loan, issueID).Error; err != nil {
			return notFoundOr(err)
		}

		result := tx.Model(&entities.IssuedBook{}).
			Where("id = ? AND status = ?", issueID, entities.LoanCurrent).
			Updates(map[string]any{
				"status":  entities.LoanReturned,
				"to_date": s.now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyReturned
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("loan revoked",
		zap.Uint("issue_id", issueID),
		zap.Uint("librarian_id", librarianID))
	return nil
}

// Return ends a current loan by the borrower, stamping the due date with
// today. Returning an already-returned loan is a no-op.
func (s *Service) Return(ctx context.Context, issueID, patronID uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var loan entities.IssuedBook
		if err := tx.First(&loan, issueID).Error; err != nil {
			return notFoundOr(err)
		}
		if loan.UserID != patronID {
			return ErrForbidden
		}
		if loan.Status == entities.LoanReturned {
			return nil
		}

		return tx.Model(&entities.IssuedBook{}).
			Where("id = ? AND status = ?", issueID, entities.LoanCurrent).
			Updates(map[string]any{
				"status":  entities.LoanReturned,
				"to_date": s.now(),
			}).Error
	})
}

// DeleteRequest removes a patron's own request. Only pending requests may be
// deleted; accepted and rejected ones stay as history.
func (s *Service) DeleteRequest(ctx context.Context, requestID, patronID uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var request entities.BookRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			return notFoundOr(err)
		}
		if request.UserID != patronID {
			return ErrForbidden
		}
		if request.Status != entities.RequestPending {
			return ErrNotPending
		}
		return tx.Delete(&entities.BookRequest{}, requestID).Error
	})
}

// SweepExpiredRequests rejects every pending request older than seven days.
// Idempotent; safe to run from any read path.
func (s *Service) SweepExpiredRequests(ctx context.Context) error {
	return s.inTx(ctx, s.sweepRequests)
}

// SweepOverdueLoans returns every current loan past its due date. The due
// date is deliberately left untouched so the original deadline stays visible
// on overdue history.
func (s *Service) SweepOverdueLoans(ctx context.Context) error {
	return s.inTx(ctx, s.sweepLoans)
}

func (s *Service) sweep(tx *gorm.DB) error {
	if err := s.sweepRequests(tx); err != nil {
		return err
	}
	return s.sweepLoans(tx)
}

func (s *Service) sweepRequests(tx *gorm.DB) error {
	cutoff := s.now().Add(-RequestExpiry)
	return tx.Model(&entities.BookRequest{}).
		Where("status = ? AND date_created < ?", entities.RequestPending, cutoff).
		Update("status", entities.RequestRejected).Error
}

func (s *Service) sweepLoans(tx *gorm.DB) error {
	return tx.Model(&entities.IssuedBook{}).
		Where("status = ? AND to_date < ?", entities.LoanCurrent, s.now()).
		Update("status", entities.LoanReturned).Error
}

// PendingRequests lists pending requests oldest first, for librarian review.
// Sweeps first so stale requests never surface.
func (s *Service) PendingRequests(ctx context.Context) ([]entities.BookRequest, error) {
	var requests []entities.BookRequest
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepRequests(tx); err != nil {
			return err
		}
		return tx.Preload("User").Preload("Book").
			Where("status = ?", entities.RequestPending).
			Order("date_created ASC, id ASC").
			Find(&requests).Error
	})
	return requests, err
}

// RejectedRequests lists rejected requests newest first.
func (s *Service) RejectedRequests(ctx context.Context) ([]entities.BookRequest, error) {
	var requests []entities.BookRequest
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepRequests(tx); err != nil {
			return err
		}
		return tx.Preload("User").Preload("Book").
			Where("status = ?", entities.RequestRejected).
			Order("date_created DESC, id DESC").
			Find(&requests).Error
	})
	return requests, err
}

// CurrentLoans lists all current loans ordered by due date, furthest first,
// matching the librarian queue view.
func (s *Service) CurrentLoans(ctx context.Context) ([]entities.IssuedBook, error) {
	var loans []entities.IssuedBook
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepLoans(tx); err != nil {
			return err
		}
		return tx.Preload("Borrower").Preload("Book").
			Where("status = ?", entities.LoanCurrent).
			Order("to_date DESC, id DESC").
			Find(&loans).Error
	})
	return loans, err
}

// CurrentLoansForBook lists current loans of one book, for its detail view.
func (s *Service) CurrentLoansForBook(ctx context.Context, bookID uint) ([]entities.IssuedBook, error) {
	var loans []entities.IssuedBook
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepLoans(tx); err != nil {
			return err
		}
		return tx.Preload("Borrower").
			Where("book_id = ? AND status = ?", bookID, entities.LoanCurrent).
			Order("to_date DESC, id DESC").
			Find(&loans).Error
	})
	return loans, err
}

// LoansForPatron returns a patron's loans, current and historical, with books
// and their feedbacks preloaded for the my-books view.
func (s *Service) LoansForPatron(ctx context.Context, patronID uint) ([]entities.IssuedBook, error) {
	var loans []entities.IssuedBook
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepLoans(tx); err != nil {
			return err
		}
		return tx.Preload("Book.Feedbacks").
			Where("user_id = ?", patronID).
			Find(&loans).Error
	})
	return loans, err
}

// RequestsForPatron returns a patron's requests ordered pending first, then
// rejected, then accepted, each oldest first.
func (s *Service) RequestsForPatron(ctx context.Context, patronID uint) ([]entities.BookRequest, error) {
	var requests []entities.BookRequest
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepRequests(tx); err != nil {
			return err
		}
		return tx.Preload("Book").
			Where("user_id = ?", patronID).
			Order("CASE status WHEN 'pending' THEN 0 WHEN 'rejected' THEN 1 ELSE 2 END, date_created ASC, id ASC").
			Find(&requests).Error
	})
	return requests, err
}

// HoldsCurrentLoan reports whether the patron currently holds the book.
// Gates access to the book's PDF reference.
func (s *Service) HoldsCurrentLoan(ctx context.Context, patronID, bookID uint) (bool, error) {
	var held bool
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweepLoans(tx); err != nil {
			return err
		}
		var count int64
		err := tx.Model(&entities.IssuedBook{}).
			Where("user_id = ? AND book_id = ? AND status = ?", patronID, bookID, entities.LoanCurrent).
			Count(&count).Error
		held = count > 0
		return err
	})
	return held, err
}

// HasEverBorrowed reports whether the patron has any loan record for the
// book, regardless of status. Gates feedback submission.
func (s *Service) HasEverBorrowed(ctx context.Context, patronID, bookID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entities.IssuedBook{}).
		Where("user_id = ? AND book_id = ?", patronID, bookID).
		Count(&count).Error
	return count > 0, err
}

// ActiveCount returns a patron's pending requests plus current loans.
func (s *Service) ActiveCount(ctx context.Context, patronID uint) (int64, error) {
	var total int64
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := s.sweep(tx); err != nil {
			return err
		}
		var err error
		total, err = s.activeCount(tx, patronID)
		return err
	})
	return total, err
}

func (s *Service) activeCount(tx *gorm.DB, patronID uint) (int64, error) {
	var pending, current int64
	err := tx.Model(&entities.BookRequest{}).
		Where("user_id = ? AND status = ?", patronID, entities.RequestPending).
		Count(&pending).Error
	if err != nil {
		return 0, err
	}
	err = tx.Model(&entities.IssuedBook{}).
		Where("user_id = ? AND status = ?", patronID, entities.LoanCurrent).
		Count(&current).Error
	if err != nil {
		return 0, err
	}
	return pending + current, nil
}

// inTx runs fn in a transaction, retrying once when the failure looks like a
// transient lock or serialization conflict.
func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err != nil && isRetryable(err) {
		s.logger.Warn("transaction conflict, retrying once", zap.Error(err))
		err = s.db.WithContext(ctx).Transaction(fn)
		if err != nil && isRetryable(err) {
			return ErrConflict
		}
	}
	return err
}

// isRetryable matches sqlite busy errors and postgres serialization or
// deadlock failures.
func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLSTATE 40001") ||
		strings.Contains(msg, "SQLSTATE 40P01")
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
