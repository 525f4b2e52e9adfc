// Package test provides fixture builders and arrange helpers shared by the
// engine test suites.
package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeiPei233/Library-Management-System/library"
	"github.com/PeiPei233/Library-Management-System/library/postgresengine"
)

// GivenCleanLibrary resets the three relations so the test starts empty.
func GivenCleanLibrary(t testing.TB, ctx context.Context, lib postgresengine.Library) {
	result := lib.ResetDatabase(ctx)
	require.True(t, result.Ok, "error in resetting the database in test setup: %s", result.Message)
}

// GivenUniqueName returns a unique holder name so card identity collisions
// between tests are impossible.
func GivenUniqueName(t testing.TB, prefix string) string {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return prefix + " " + id.String()
}

// FixtureBook builds an unstored book with realistic descriptive fields
// and the given stock.
func FixtureBook(stock int) *library.Book {
	return &library.Book{
		Category:    "Software Engineering",
		Title:       "Learning Domain-Driven Design",
		Press:       "O'Reilly Media, Inc.",
		PublishYear: 2021,
		Author:      "Vlad Khononov",
		Price:       45.99,
		Stock:       stock,
	}
}

// FixtureBooks builds a batch of distinct unstored books.
func FixtureBooks() []*library.Book {
	return []*library.Book{
		{
			Category:    "Software Engineering",
			Title:       "Designing Data-Intensive Applications",
			Press:       "O'Reilly Media, Inc.",
			PublishYear: 2017,
			Author:      "Martin Kleppmann",
			Price:       39.99,
			Stock:       3,
		},
		{
			Category:    "Databases",
			Title:       "Database Internals",
			Press:       "O'Reilly Media, Inc.",
			PublishYear: 2019,
			Author:      "Alex Petrov",
			Price:       49.99,
			Stock:       2,
		},
		{
			Category:    "Databases",
			Title:       "PostgreSQL: Up and Running",
			Press:       "O'Reilly Media, Inc.",
			PublishYear: 2017,
			Author:      "Regina Obe",
			Price:       29.99,
			Stock:       1,
		},
	}
}

// GivenBookWasStored stores a book with the given stock and returns it
// with the assigned identifier.
func GivenBookWasStored(t testing.TB, ctx context.Context, lib postgresengine.Library, stock int) *library.Book {
	book := FixtureBook(stock)
	result := lib.StoreBook(ctx, book)
	require.True(t, result.Ok, "error in arranging test data: %s", result.Message)
	require.NotZero(t, book.ID, "book id was not assigned in test setup")

	return book
}

// GivenCardWasRegistered registers a card with a unique holder name and
// returns it with the assigned identifier.
func GivenCardWasRegistered(t testing.TB, ctx context.Context, lib postgresengine.Library) *library.Card {
	card := &library.Card{
		Name:       GivenUniqueName(t, "Reader"),
		Department: "Computer Science",
		Type:       library.Student,
	}

	result := lib.RegisterCard(ctx, card)
	require.True(t, result.Ok, "error in arranging test data: %s", result.Message)
	require.NotZero(t, card.ID, "card id was not assigned in test setup")

	return card
}

// GivenBookWasBorrowed opens a loan in test arrangement.
func GivenBookWasBorrowed(t testing.TB, ctx context.Context, lib postgresengine.Library, cardID, bookID int64, borrowTime int64) {
	result := lib.BorrowBook(ctx, cardID, bookID, borrowTime)
	require.True(t, result.Ok, "error in arranging test data: %s", result.Message)
}

// QueryStock reads back a single book's current stock through the public
// query operation.
func QueryStock(t testing.TB, ctx context.Context, lib postgresengine.Library, bookID int64) int {
	result := lib.QueryBooks(ctx, library.BuildBookQuery().MatchingAnyBook())
	require.True(t, result.Ok, "error in querying books in test: %s", result.Message)

	payload, ok := result.Payload.(library.BookQueryResults)
	require.True(t, ok, "unexpected payload type in test")

	for _, book := range payload.Books {
		if book.ID == bookID {
			return book.Stock
		}
	}

	t.Fatalf("book %d not found when querying stock", bookID)

	return 0
}
