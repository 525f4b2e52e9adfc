package postgresengine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeiPei233/Library-Management-System/library"
	. "github.com/PeiPei233/Library-Management-System/library/postgresengine"
	. "github.com/PeiPei233/Library-Management-System/test"
	"github.com/PeiPei233/Library-Management-System/test/config"
)

func Test_BorrowBook_OpensLoanAndDecrementsStock(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 3)

	// act
	result := lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 1000)

	// assert
	require.True(t, result.Ok, "error in borrowing the book: %s", result.Message)
	assert.Equal(t, "Borrow book successfully.", result.Message)
	assert.Equal(t, 2, QueryStock(t, ctxWithTimeout, lib, book.ID))

	historyResult := lib.ShowBorrowHistory(ctxWithTimeout, card.ID)
	require.True(t, historyResult.Ok, "error in querying the history: %s", historyResult.Message)

	history := historyResult.Payload.(library.BorrowHistories)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, book.ID, history.Items[0].BookID)
	assert.Equal(t, int64(1000), history.Items[0].BorrowTime)
	assert.False(t, history.Items[0].Returned)
}

func Test_BorrowBook_RejectsSecondOpenLoanForTheSamePair(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 3)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, book.ID, 1000)

	// act
	result := lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 2000)

	// assert
	require.False(t, result.Ok, "a second open loan for the same pair must be rejected")
	assert.Equal(t, library.KindConflict, result.Kind)
	assert.Contains(t, result.Message, "already borrowed")
	assert.Equal(t, 2, QueryStock(t, ctxWithTimeout, lib, book.ID), "the rejected borrow must not change the stock")
}

func Test_BorrowBook_RejectsWhenOutOfStock(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 0)

	// act
	result := lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 1000)

	// assert
	require.False(t, result.Ok, "borrowing without stock must be rejected")
	assert.Equal(t, library.KindConflict, result.Kind)
	assert.Contains(t, result.Message, "no stock")
}

func Test_BorrowBook_FailsForUnknownCard(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)

	// act
	result := lib.BorrowBook(ctxWithTimeout, 424242, book.ID, 1000)

	// assert
	require.False(t, result.Ok)
	assert.Equal(t, library.KindNotFound, result.Kind)
	assert.Contains(t, result.Message, "card does not exist")
	assert.Equal(t, 1, QueryStock(t, ctxWithTimeout, lib, book.ID))
}

func Test_ReturnBook_ClosesLoanAndRestoresStock(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, book.ID, 1000)

	// act
	result := lib.ReturnBook(ctxWithTimeout, card.ID, book.ID, 2000)

	// assert
	require.True(t, result.Ok, "error in returning the book: %s", result.Message)
	assert.Equal(t, "Return book successfully.", result.Message)
	assert.Equal(t, 1, QueryStock(t, ctxWithTimeout, lib, book.ID))

	historyResult := lib.ShowBorrowHistory(ctxWithTimeout, card.ID)
	require.True(t, historyResult.Ok)

	history := historyResult.Payload.(library.BorrowHistories)
	require.Equal(t, 1, history.Count)
	assert.True(t, history.Items[0].Returned)
	assert.Equal(t, int64(2000), history.Items[0].ReturnTime)

	// the pair can be borrowed again once the loan is closed
	borrowAgain := lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 3000)
	require.True(t, borrowAgain.Ok, "error in borrowing again: %s", borrowAgain.Message)
}

func Test_ReturnBook_FailsWithoutAnOpenLoan(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, book.ID, 1000)

	returnResult := lib.ReturnBook(ctxWithTimeout, card.ID, book.ID, 2000)
	require.True(t, returnResult.Ok, "error in returning the book: %s", returnResult.Message)

	// act: the loan is already closed
	result := lib.ReturnBook(ctxWithTimeout, card.ID, book.ID, 3000)

	// assert
	require.False(t, result.Ok, "returning a closed loan must fail")
	assert.Equal(t, library.KindConflict, result.Kind)
	assert.Contains(t, result.Message, "already been returned")
	assert.Equal(t, 1, QueryStock(t, ctxWithTimeout, lib, book.ID), "the rejected return must not change the stock")
}

func Test_ReturnBook_RejectsReturnTimeNotAfterBorrowTime(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, book.ID, 1000)

	// act: equal timestamps are rejected, the return must be strictly later
	result := lib.ReturnBook(ctxWithTimeout, card.ID, book.ID, 1000)

	// assert
	require.False(t, result.Ok)
	assert.Equal(t, library.KindConflict, result.Kind)
	assert.Contains(t, result.Message, "not later than borrow time")
	assert.Equal(t, 0, QueryStock(t, ctxWithTimeout, lib, book.ID), "the loan must stay open after the rejected return")
}

func Test_ShowBorrowHistory_OrdersByBorrowTimeDescendingWithBookIDTieBreak(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	books := FixtureBooks()
	storeResult := lib.StoreBooks(ctxWithTimeout, books)
	require.True(t, storeResult.Ok, "error in storing the books: %s", storeResult.Message)

	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, books[2].ID, 1000)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, books[0].ID, 2000)
	GivenBookWasBorrowed(t, ctxWithTimeout, lib, card.ID, books[1].ID, 2000)
	returnResult := lib.ReturnBook(ctxWithTimeout, card.ID, books[2].ID, 1500)
	require.True(t, returnResult.Ok, "error in returning the book: %s", returnResult.Message)

	// act
	result := lib.ShowBorrowHistory(ctxWithTimeout, card.ID)

	// assert
	require.True(t, result.Ok, "error in querying the history: %s", result.Message)
	assert.Equal(t, "Query borrow history successfully.", result.Message)

	history := result.Payload.(library.BorrowHistories)
	require.Equal(t, 3, history.Count)

	// newest first; equal borrow times ordered by book identifier ascending
	assert.Equal(t, books[0].ID, history.Items[0].BookID)
	assert.Equal(t, books[1].ID, history.Items[1].BookID)
	assert.Equal(t, books[2].ID, history.Items[2].BookID)

	assert.False(t, history.Items[0].Returned)
	assert.True(t, history.Items[2].Returned)
	assert.Equal(t, books[0].Title, history.Items[0].Title)
	assert.Equal(t, books[0].Author, history.Items[0].Author)
}

func Test_ShowBorrowHistory_IsEmptyForCardWithoutLoans(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)

	// act
	result := lib.ShowBorrowHistory(ctxWithTimeout, card.ID)

	// assert
	require.True(t, result.Ok, "error in querying the history: %s", result.Message)

	history := result.Payload.(library.BorrowHistories)
	assert.Equal(t, 0, history.Count)
	assert.Empty(t, history.Items)
}

func Test_BorrowBook_ConcurrentBorrowsOfTheLastCopy(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	firstCard := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	secondCard := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)

	// act: both cards race for the last remaining copy
	var successCount, conflictCount atomic.Int32
	var waitGroup sync.WaitGroup

	for _, cardID := range []int64{firstCard.ID, secondCard.ID} {
		waitGroup.Add(1)

		go func(cardID int64) {
			defer waitGroup.Done()

			result := lib.BorrowBook(ctxWithTimeout, cardID, book.ID, 1000)
			if result.Ok {
				successCount.Add(1)
				return
			}

			assert.Equal(t, library.KindConflict, result.Kind, "the losing borrow must fail as a conflict: %s", result.Message)
			conflictCount.Add(1)
		}(cardID)
	}

	waitGroup.Wait()

	// assert
	assert.Equal(t, int32(1), successCount.Load(), "exactly one concurrent borrow must succeed")
	assert.Equal(t, int32(1), conflictCount.Load(), "exactly one concurrent borrow must fail")
	assert.Equal(t, 0, QueryStock(t, ctxWithTimeout, lib, book.ID), "the stock must end at zero, never below")
}

func Test_LendingLifecycle(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	defer connPool.Close()
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	lib, err := NewLibraryFromPGXPool(connPool)
	assert.NoError(t, err, "creating the library engine failed")

	// arrange
	GivenCleanLibrary(t, ctxWithTimeout, lib)
	card := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	book := GivenBookWasStored(t, ctxWithTimeout, lib, 1)

	// act + assert: borrow the only copy
	require.True(t, lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 1000).Ok)
	assert.Equal(t, 0, QueryStock(t, ctxWithTimeout, lib, book.ID))

	// the same pair cannot borrow again while the loan is open
	assert.False(t, lib.BorrowBook(ctxWithTimeout, card.ID, book.ID, 1100).Ok)

	// another card cannot borrow the exhausted book
	otherCard := GivenCardWasRegistered(t, ctxWithTimeout, lib)
	assert.False(t, lib.BorrowBook(ctxWithTimeout, otherCard.ID, book.ID, 1200).Ok)

	// neither the book nor the card can be removed while the loan is open
	assert.False(t, lib.RemoveBook(ctxWithTimeout, book.ID).Ok)
	assert.False(t, lib.RemoveCard(ctxWithTimeout, card.ID).Ok)

	// return the copy and the stock is restored
	require.True(t, lib.ReturnBook(ctxWithTimeout, card.ID, book.ID, 2000).Ok)
	assert.Equal(t, 1, QueryStock(t, ctxWithTimeout, lib, book.ID))

	// now the other card can borrow it
	require.True(t, lib.BorrowBook(ctxWithTimeout, otherCard.ID, book.ID, 3000).Ok)
	require.True(t, lib.ReturnBook(ctxWithTimeout, otherCard.ID, book.ID, 4000).Ok)

	// and with all loans closed both removals succeed
	require.True(t, lib.RemoveCard(ctxWithTimeout, otherCard.ID).Ok)
	require.True(t, lib.RemoveBook(ctxWithTimeout, book.ID).Ok)

	// the first card keeps its full history
	history := lib.ShowBorrowHistory(ctxWithTimeout, card.ID)
	require.True(t, history.Ok)
	assert.Equal(t, 0, history.Payload.(library.BorrowHistories).Count,
		"removing the book cascades its borrow records")
}
