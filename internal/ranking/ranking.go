// Package ranking derives popularity-sorted views over the catalog and
// feedback. All functions are pure: they sort copies of their input and
// never touch the database.
//
// Books rank by total accumulated rating (not average), so a book with more
// feedback generally outranks one with less even at equal average; creation
// date breaks ties by recency.
package ranking

import (
	"sort"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// Books sorts books by (sum of feedback ratings, creation date) descending.
// Feedbacks must be preloaded.
func Books(books []entities.Book) []entities.Book {
	out := make([]entities.Book, len(books))
	copy(out, books)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].RatingSum(), out[j].RatingSum()
		if si != sj {
			return si > sj
		}
		return out[i].DateCreated.After(out[j].DateCreated)
	})
	return out
}

// Sections sorts sections by book count descending and pins the
// Miscellaneous section last regardless of its count. Used for catalog-wide
// listings.
func Sections(sections []entities.Section) []entities.Section {
	ranked := SectionsByRelevance(sections)
	out := make([]entities.Section, 0, len(ranked))
	var misc *entities.Section
	for i := range ranked {
		if ranked[i].IsMiscellaneous() {
			misc = &ranked[i]
			continue
		}
		out = append(out, ranked[i])
	}
	if misc != nil {
		out = append(out, *misc)
	}
	return out
}

// SectionsByRelevance sorts sections by book count descending without the
// Miscellaneous pin. Used for search results, where relevance wins.
func SectionsByRelevance(sections []entities.Section) []entities.Section {
	out := make([]entities.Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Books) > len(out[j].Books)
	})
	return out
}

// Feedbacks sorts a book's feedbacks by (rating, creation date) descending.
func Feedbacks(feedbacks []entities.Feedback) []entities.Feedback {
	out := make([]entities.Feedback, len(feedbacks))
	copy(out, feedbacks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].DateCreated.After(out[j].DateCreated)
	})
	return out
}

// CurrentLoans orders a patron's current loans by due date ascending, the
// most urgent first, breaking ties by the borrowed book's rating sum
// descending. Book feedbacks must be preloaded.
func CurrentLoans(loans []entities.IssuedBook) []entities.IssuedBook {
	out := filterLoans(loans, entities.LoanCurrent)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ToDate.Equal(out[j].ToDate) {
			return out[i].ToDate.Before(out[j].ToDate)
		}
		return out[i].Book.RatingSum() > out[j].Book.RatingSum()
	})
	return out
}

// CompletedLoans orders a patron's finished loans newest first by end date,
// breaking ties by the book's rating sum descending.
func CompletedLoans(loans []entities.IssuedBook) []entities.IssuedBook {
	out := filterLoans(loans, entities.LoanReturned)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ToDate.Equal(out[j].ToDate) {
			return out[i].ToDate.After(out[j].ToDate)
		}
		return out[i].Book.RatingSum() > out[j].Book.RatingSum()
	})
	return out
}

func filterLoans(loans []entities.IssuedBook, status entities.LoanStatus) []entities.IssuedBook {
	out := make([]entities.IssuedBook, 0, len(loans))
	for _, loan := range loans {
		if loan.Status == status {
			out = append(out, loan)
		}
	}
	return out
}
