package postgresengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeiPei233/Library-Management-System/library"
)

func testLibraryWithDefaultTables() Library {
	return Library{
		bookTableName:   defaultBookTableName,
		cardTableName:   defaultCardTableName,
		borrowTableName: defaultBorrowTableName,
		lockTimeout:     defaultLockTimeout,
	}
}

func Test_BuildBookQuerySQL_EmptyQueryMatchesWholeCatalog(t *testing.T) {
	lib := testLibraryWithDefaultTables()

	sqlQuery, args, err := lib.buildBookQuerySQL(library.BuildBookQuery().MatchingAnyBook())
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `FROM "book"`)
	assert.NotContains(t, sqlQuery, "WHERE")
	assert.Contains(t, sqlQuery, `ORDER BY "book_id" ASC`)
	assert.Empty(t, args)
}

func Test_BuildBookQuerySQL_FiltersTravelAsPlaceholderArgs(t *testing.T) {
	lib := testLibraryWithDefaultTables()

	query := library.BuildBookQuery().
		WithCategory("Databases").
		WithTitleContains("Internals").
		WithMinPublishYear(2015).
		WithMaxPrice(60).
		Finalize()

	sqlQuery, args, err := lib.buildBookQuerySQL(query)
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `"category" = $1`)
	assert.Contains(t, sqlQuery, `"title" LIKE $2`)
	assert.Contains(t, sqlQuery, `"publish_year" >= $3`)
	assert.Contains(t, sqlQuery, `"price" <= $4`)
	assert.NotContains(t, sqlQuery, "Databases", "filter values must never be interpolated into the query text")
	assert.NotContains(t, sqlQuery, "Internals")

	require.Len(t, args, 4)
	assert.EqualValues(t, "Databases", args[0])
	assert.EqualValues(t, "%Internals%", args[1])
	assert.EqualValues(t, 2015, args[2])
	assert.EqualValues(t, 60, args[3])
}

func Test_BuildBookQuerySQL_SortAppendsIdentifierTieBreak(t *testing.T) {
	lib := testLibraryWithDefaultTables()

	query := library.BuildBookQuery().
		SortedBy(library.SortByPrice, library.Desc).
		Finalize()

	sqlQuery, _, err := lib.buildBookQuerySQL(query)
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `ORDER BY "price" DESC, "book_id" ASC`)
}

func Test_BuildBookQuerySQL_SortByIdentifierHasNoTieBreak(t *testing.T) {
	lib := testLibraryWithDefaultTables()

	query := library.BuildBookQuery().
		SortedBy(library.SortByBookID, library.Desc).
		Finalize()

	sqlQuery, _, err := lib.buildBookQuerySQL(query)
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `ORDER BY "book_id" DESC`)
	assert.NotContains(t, sqlQuery, `"book_id" DESC, "book_id" ASC`)
}

func Test_BuildBookQuerySQL_CustomTableName(t *testing.T) {
	lib := testLibraryWithDefaultTables()
	lib.bookTableName = "catalog_book"

	sqlQuery, _, err := lib.buildBookQuerySQL(library.BuildBookQuery().MatchingAnyBook())
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `FROM "catalog_book"`)
}

func Test_SortColumnName_CoversWhitelist(t *testing.T) {
	tests := []struct {
		column   library.SortColumn
		expected string
	}{
		{column: library.SortByBookID, expected: colBookID},
		{column: library.SortByCategory, expected: colCategory},
		{column: library.SortByTitle, expected: colTitle},
		{column: library.SortByPress, expected: colPress},
		{column: library.SortByPublishYear, expected: colPublishYear},
		{column: library.SortByAuthor, expected: colAuthor},
		{column: library.SortByPrice, expected: colPrice},
		{column: library.SortByStock, expected: colStock},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, sortColumnName(tc.column))
		})
	}
}

func Test_IsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(assert.AnError))
}
