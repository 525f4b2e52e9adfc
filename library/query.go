package library

import "strings"

/***** Sort specification *****/

// SortColumn is the fixed whitelist of catalog sort columns. Storage
// engines translate these to column names; caller strings never reach the
// query text.
type SortColumn int

const (
	SortByBookID SortColumn = iota
	SortByCategory
	SortByTitle
	SortByPress
	SortByPublishYear
	SortByAuthor
	SortByPrice
	SortByStock
)

// String provides a readable representation for logging.
func (c SortColumn) String() string {
	switch c {
	case SortByCategory:
		return "category"
	case SortByTitle:
		return "title"
	case SortByPress:
		return "press"
	case SortByPublishYear:
		return "publish_year"
	case SortByAuthor:
		return "author"
	case SortByPrice:
		return "price"
	case SortByStock:
		return "stock"
	default:
		return "book_id"
	}
}

// SortOrder is the direction of a catalog sort.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// String provides a readable representation for logging.
func (o SortOrder) String() string {
	if o == Desc {
		return "desc"
	}

	return "asc"
}

/***** BookQuery *****/

// BookQuery is a sparse set of optional catalog filters plus an optional
// sort specification. The zero value matches every book ordered by
// identifier.
//
// It should only be constructed with BuildBookQuery; the accessor methods
// report each filter as (value, ok) so engines can distinguish unset from
// zero-valued filters.
type BookQuery struct {
	category string
	title    string
	press    string
	author   string

	minPublishYear    int
	hasMinPublishYear bool
	maxPublishYear    int
	hasMaxPublishYear bool

	minPrice    float64
	hasMinPrice bool
	maxPrice    float64
	hasMaxPrice bool

	sortBy    SortColumn
	sortOrder SortOrder
	hasSort   bool
}

// Category returns the exact-match category filter, if set.
func (q BookQuery) Category() (string, bool) {
	return q.category, q.category != ""
}

// TitleContains returns the title substring filter, if set.
func (q BookQuery) TitleContains() (string, bool) {
	return q.title, q.title != ""
}

// PressContains returns the press substring filter, if set.
func (q BookQuery) PressContains() (string, bool) {
	return q.press, q.press != ""
}

// AuthorContains returns the author substring filter, if set.
func (q BookQuery) AuthorContains() (string, bool) {
	return q.author, q.author != ""
}

// MinPublishYear returns the inclusive lower publish year bound, if set.
func (q BookQuery) MinPublishYear() (int, bool) {
	return q.minPublishYear, q.hasMinPublishYear
}

// MaxPublishYear returns the inclusive upper publish year bound, if set.
func (q BookQuery) MaxPublishYear() (int, bool) {
	return q.maxPublishYear, q.hasMaxPublishYear
}

// MinPrice returns the inclusive lower price bound, if set.
func (q BookQuery) MinPrice() (float64, bool) {
	return q.minPrice, q.hasMinPrice
}

// MaxPrice returns the inclusive upper price bound, if set.
func (q BookQuery) MaxPrice() (float64, bool) {
	return q.maxPrice, q.hasMaxPrice
}

// Sort returns the requested sort column and direction, if set.
func (q BookQuery) Sort() (SortColumn, SortOrder, bool) {
	return q.sortBy, q.sortOrder, q.hasSort
}

/***** BookQueryBuilder *****/

// BookQueryBuilder assembles a BookQuery from any subset of the optional
// filters. It sanitizes the input: blank or whitespace-only strings are
// treated as unset and never reach the generated query.
type BookQueryBuilder struct {
	query BookQuery
}

// BuildBookQuery creates a BookQueryBuilder which must eventually be
// finalized with Finalize() or MatchingAnyBook().
func BuildBookQuery() BookQueryBuilder {
	return BookQueryBuilder{}
}

// MatchingAnyBook directly creates an empty query matching the whole catalog.
func (b BookQueryBuilder) MatchingAnyBook() BookQuery {
	return BookQuery{}
}

// WithCategory adds an exact-match category filter.
func (b BookQueryBuilder) WithCategory(category string) BookQueryBuilder {
	b.query.category = strings.TrimSpace(category)

	return b
}

// WithTitleContains adds a title substring filter.
func (b BookQueryBuilder) WithTitleContains(title string) BookQueryBuilder {
	b.query.title = strings.TrimSpace(title)

	return b
}

// WithPressContains adds a press substring filter.
func (b BookQueryBuilder) WithPressContains(press string) BookQueryBuilder {
	b.query.press = strings.TrimSpace(press)

	return b
}

// WithAuthorContains adds an author substring filter.
func (b BookQueryBuilder) WithAuthorContains(author string) BookQueryBuilder {
	b.query.author = strings.TrimSpace(author)

	return b
}

// WithMinPublishYear adds an inclusive lower publish year bound.
func (b BookQueryBuilder) WithMinPublishYear(year int) BookQueryBuilder {
	b.query.minPublishYear = year
	b.query.hasMinPublishYear = true

	return b
}

// WithMaxPublishYear adds an inclusive upper publish year bound.
func (b BookQueryBuilder) WithMaxPublishYear(year int) BookQueryBuilder {
	b.query.maxPublishYear = year
	b.query.hasMaxPublishYear = true

	return b
}

// WithMinPrice adds an inclusive lower price bound.
func (b BookQueryBuilder) WithMinPrice(price float64) BookQueryBuilder {
	b.query.minPrice = price
	b.query.hasMinPrice = true

	return b
}

// WithMaxPrice adds an inclusive upper price bound.
func (b BookQueryBuilder) WithMaxPrice(price float64) BookQueryBuilder {
	b.query.maxPrice = price
	b.query.hasMaxPrice = true

	return b
}

// SortedBy sets the sort column and direction. Engines always append the
// book identifier as a final ascending tie-break when column is not
// SortByBookID, so repeated queries over identical data are reproducible.
func (b BookQueryBuilder) SortedBy(column SortColumn, order SortOrder) BookQueryBuilder {
	b.query.sortBy = column
	b.query.sortOrder = order
	b.query.hasSort = true

	return b
}

// Finalize returns the assembled BookQuery.
func (b BookQueryBuilder) Finalize() BookQuery {
	return b.query
}
