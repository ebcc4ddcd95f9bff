package entities

import (
	"time"
)

type UserRole string

const (
	RolePatron    UserRole = "patron"
	RoleLibrarian UserRole = "librarian"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

type LoanStatus string

const (
	LoanCurrent  LoanStatus = "current"
	LoanReturned LoanStatus = "returned"
)

// MiscellaneousSectionID is the fixed ID of the fallback section seeded at
// database creation. It can never be edited or deleted; books from deleted
// sections are reassigned to it.
const MiscellaneousSectionID = uint(1)

// Default stored-file references. These are shared assets and are never
// deleted when a record's picture or PDF is replaced.
const (
	DefaultProfilePicture = "default_profile_picture.png"
	DefaultSectionPicture = "default_section_picture.jpeg"
	DefaultBookPicture    = "default_book_picture.png"
	DefaultBookPDF        = "sample_pdf.pdf"
)

type User struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	Name           string   `gorm:"size:60" json:"name"`
	Username       string   `gorm:"uniqueIndex;size:32" json:"username"`
	Email          string   `gorm:"uniqueIndex;size:60" json:"email"`
	PasswordHash   string   `gorm:"size:60" json:"-"`
	ProfilePicture string   `gorm:"size:64;default:'default_profile_picture.png'" json:"profile_picture"`
	Role           UserRole `gorm:"size:20;default:'patron'" json:"role"`

	Requests  []BookRequest `gorm:"foreignKey:UserID" json:"requests,omitempty"`
	Feedbacks []Feedback    `gorm:"foreignKey:UserID" json:"feedbacks,omitempty"`
	// Loans the user holds as borrower; IssuedLoans are the ones they granted
	// as librarian. Two distinct relations back to IssuedBook.
	Loans       []IssuedBook `gorm:"foreignKey:UserID" json:"loans,omitempty"`
	IssuedLoans []IssuedBook `gorm:"foreignKey:IssuedBy" json:"issued_loans,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Section struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:60" json:"title"`
	Description string    `gorm:"size:120" json:"description"`
	Picture     string    `gorm:"size:64;default:'default_section_picture.jpeg'" json:"picture"`
	DateCreated time.Time `json:"date_created"`

	Books []Book `gorm:"foreignKey:SectionID" json:"books,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsMiscellaneous reports whether this is the protected fallback section.
func (s *Section) IsMiscellaneous() bool {
	return s.ID == MiscellaneousSectionID
}

type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:60" json:"title"`
	Author      string    `gorm:"index;size:60" json:"author"`
	Description string    `gorm:"size:120" json:"description"`
	Picture     string    `gorm:"size:64;default:'default_book_picture.png'" json:"picture"`
	PDFFile     string    `gorm:"size:64;default:'sample_pdf.pdf'" json:"pdf_file"`
	SectionID   uint      `gorm:"index;default:1" json:"section_id"`
	DateCreated time.Time `json:"date_created"`

	Section   Section       `gorm:"foreignKey:SectionID" json:"-"`
	Requests  []BookRequest `gorm:"foreignKey:BookID" json:"requests,omitempty"`
	Loans     []IssuedBook  `gorm:"foreignKey:BookID" json:"loans,omitempty"`
	Feedbacks []Feedback    `gorm:"foreignKey:BookID" json:"feedbacks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSum returns the total accumulated feedback rating for the book.
// Requires Feedbacks to be preloaded.
func (b *Book) RatingSum() int {
	sum := 0
	for _, f := range b.Feedbacks {
		sum += f.Rating
	}
	return sum
}

// BookRequest is a patron's ask to borrow a book for 1-7 days.
// Named BookRequest rather than Request to avoid clashing with HTTP vocabulary.
type BookRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"index" json:"user_id"`
	BookID      uint          `gorm:"index" json:"book_id"`
	Days        int           `json:"days"`
	Status      RequestStatus `gorm:"size:20;default:'pending';index" json:"status"`
	DateCreated time.Time     `json:"date_created"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IssuedBook is an active or historical loan. UserID is the borrower and
// IssuedBy the granting librarian; both point at User through separate
// named relations.
type IssuedBook struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	UserID   uint       `gorm:"index" json:"user_id"`
	IssuedBy uint       `gorm:"index" json:"issued_by"`
	BookID   uint       `gorm:"index" json:"book_id"`
	FromDate time.Time  `json:"from_date"`
	ToDate   time.Time  `json:"to_date"`
	Status   LoanStatus `gorm:"size:20;default:'current';index" json:"status"`

	Borrower User `gorm:"foreignKey:UserID" json:"-"`
	Issuer   User `gorm:"foreignKey:IssuedBy" json:"-"`
	Book     Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overdue reports whether the loan is current and past its due date.
func (i *IssuedBook) Overdue(today time.Time) bool {
	return i.Status == LoanCurrent && today.After(i.ToDate)
}

type Feedback struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	BookID      uint      `gorm:"index" json:"book_id"`
	Rating      int       `json:"rating"`
	Content     string    `gorm:"size:200" json:"content"`
	DateCreated time.Time `json:"date_created"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Today returns the current UTC date truncated to midnight. All ledger date
// arithmetic (due dates, request expiry) works on whole days.
func Today() time.Time {
	return DateOf(time.Now().UTC())
}

// DateOf truncates a timestamp to its UTC date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
