package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/PeiPei233/Library-Management-System/library"
	"github.com/PeiPei233/Library-Management-System/library/postgresengine/internal/adapters"
)

const (
	actionStoreBook      = "store book"
	actionStoreBooks     = "store books"
	actionIncBookStock   = "update book stock"
	actionModifyBookInfo = "modify book info"
	actionRemoveBook     = "remove book"
	actionQueryBooks     = "query books"

	msgStoreBookOK      = "Store book successfully."
	msgStoreBooksOK     = "Store books successfully."
	msgIncBookStockOK   = "Update stock successfully."
	msgModifyBookInfoOK = "Modify book info successfully."
	msgRemoveBookOK     = "Remove book successfully."
	msgQueryBooksOK     = "Query books successfully."
)

// StoreBook persists a new book and assigns its identifier, which is read
// back directly from the insert. Validation of the descriptive fields is
// the caller's responsibility.
func (l Library) StoreBook(ctx context.Context, book *library.Book) library.Result {
	var bookID int64

	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		insertedID, insertErr := l.insertBook(ctx, tx, *book)
		if insertErr != nil {
			return insertErr
		}

		bookID = insertedID

		return nil
	})

	if txErr != nil {
		l.logFailure(actionStoreBook, txErr)
		return library.FailFromError(txErr)
	}

	book.ID = bookID
	l.logOperation(actionStoreBook, logAttrBookID, bookID)

	return library.OKWithPayload(msgStoreBookOK, library.StoredBookID{BookID: bookID})
}

// StoreBooks persists a batch of books as one atomic unit: either every
// book is stored and every identifier assigned, or none are.
func (l Library) StoreBooks(ctx context.Context, books []*library.Book) library.Result {
	bookIDs := make([]int64, len(books))

	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		for i, book := range books {
			insertedID, insertErr := l.insertBook(ctx, tx, *book)
			if insertErr != nil {
				return insertErr
			}

			bookIDs[i] = insertedID
		}

		return nil
	})

	if txErr != nil {
		l.logFailure(actionStoreBooks, txErr)
		return library.FailFromError(txErr)
	}

	for i, book := range books {
		book.ID = bookIDs[i]
	}

	l.logOperation(actionStoreBooks, logAttrCount, len(books))

	return library.OKWithPayload(msgStoreBooksOK, library.StoredBookIDs{BookIDs: bookIDs})
}

// IncBookStock applies a positive or negative stock delta. The book row is
// locked across the check and the update so concurrent deltas cannot drive
// the stock negative.
func (l Library) IncBookStock(ctx context.Context, bookID int64, delta int) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		stock, lockErr := l.lockBookStock(ctx, tx, bookID)
		if lockErr != nil {
			return lockErr
		}

		if stock+delta < 0 {
			return library.ErrStockWouldGoNegative
		}

		return l.applyStockDelta(ctx, tx, bookID, delta)
	})

	if txErr != nil {
		l.logFailure(actionIncBookStock, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionIncBookStock, logAttrBookID, bookID)

	return library.OK(msgIncBookStockOK)
}

// ModifyBookInfo overwrites the descriptive fields of a book. The stock
// column is deliberately untouched so metadata edits never clobber the
// inventory count.
func (l Library) ModifyBookInfo(ctx context.Context, book library.Book) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		if _, lockErr := l.lockBookStock(ctx, tx, book.ID); lockErr != nil {
			return lockErr
		}

		updateSQL, args, buildErr := l.builder().
			Update(l.bookTableName).
			Set(goqu.Record{
				colCategory:    book.Category,
				colTitle:       book.Title,
				colPress:       book.Press,
				colPublishYear: book.PublishYear,
				colAuthor:      book.Author,
				colPrice:       book.Price,
			}).
			Where(goqu.C(colBookID).Eq(book.ID)).
			Prepared(true).
			ToSQL()
		if buildErr != nil {
			l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
			return errors.Join(library.ErrBuildingQueryFailed, buildErr)
		}

		_, execErr := l.execTx(ctx, tx, updateSQL, args)

		return execErr
	})

	if txErr != nil {
		l.logFailure(actionModifyBookInfo, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionModifyBookInfo, logAttrBookID, book.ID)

	return library.OK(msgModifyBookInfoOK)
}

// RemoveBook deletes a book unless an open loan still references it.
func (l Library) RemoveBook(ctx context.Context, bookID int64) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		if _, lockErr := l.lockBookStock(ctx, tx, bookID); lockErr != nil {
			return lockErr
		}

		openLoan, checkErr := l.hasOpenLoan(ctx, tx, goqu.C(colBookID).Eq(bookID))
		if checkErr != nil {
			return checkErr
		}

		if openLoan {
			return library.ErrBookHasOpenLoans
		}

		deleteSQL, args, buildErr := l.builder().
			Delete(l.bookTableName).
			Where(goqu.C(colBookID).Eq(bookID)).
			Prepared(true).
			ToSQL()
		if buildErr != nil {
			l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
			return errors.Join(library.ErrBuildingQueryFailed, buildErr)
		}

		_, execErr := l.execTx(ctx, tx, deleteSQL, args)

		return execErr
	})

	if txErr != nil {
		l.logFailure(actionRemoveBook, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionRemoveBook, logAttrBookID, bookID)

	return library.OK(msgRemoveBookOK)
}

// QueryBooks returns the full set of books matching the conditions, in
// deterministic order, together with its count.
func (l Library) QueryBooks(ctx context.Context, query library.BookQuery) library.Result {
	sqlQuery, args, buildErr := l.buildBookQuerySQL(query)
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return library.FailFromError(buildErr)
	}

	rows, queryErr := l.queryDB(ctx, sqlQuery, args)
	if queryErr != nil {
		return library.FailFromError(queryErr)
	}
	defer l.closeRows(rows)

	books := make([]library.Book, 0)

	for rows.Next() {
		var book library.Book

		scanErr := rows.Scan(
			&book.ID, &book.Category, &book.Title, &book.Press,
			&book.PublishYear, &book.Author, &book.Price, &book.Stock)
		if scanErr != nil {
			l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
			return library.FailFromError(errors.Join(library.ErrScanRowFailed, scanErr))
		}

		books = append(books, book)
	}

	l.logOperation(actionQueryBooks, logAttrCount, len(books))

	return library.OKWithPayload(msgQueryBooksOK, library.BookQueryResults{Count: len(books), Books: books})
}

/***** shared book helpers *****/

// lockBookStock acquires an exclusive lock on the book row and returns its
// current stock. The lock is held until the surrounding transaction ends,
// making check-then-act sequences on the stock atomic.
func (l Library) lockBookStock(ctx context.Context, tx adapters.DBTx, bookID int64) (int, error) {
	selectSQL, args, buildErr := l.builder().
		From(l.bookTableName).
		Select(colStock).
		Where(goqu.C(colBookID).Eq(bookID)).
		ForUpdate(exp.Wait).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return 0, errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	rows, queryErr := l.queryTx(ctx, tx, selectSQL, args)
	if queryErr != nil {
		return 0, queryErr
	}
	defer l.closeRows(rows)

	if !rows.Next() {
		return 0, library.ErrBookNotFound
	}

	var stock int
	if scanErr := rows.Scan(&stock); scanErr != nil {
		l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
		return 0, errors.Join(library.ErrScanRowFailed, scanErr)
	}

	return stock, nil
}

// applyStockDelta adjusts the stock of an already locked book row.
func (l Library) applyStockDelta(ctx context.Context, tx adapters.DBTx, bookID int64, delta int) error {
	updateSQL, args, buildErr := l.builder().
		Update(l.bookTableName).
		Set(goqu.Record{colStock: goqu.L("stock + ?", delta)}).
		Where(goqu.C(colBookID).Eq(bookID)).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	_, execErr := l.execTx(ctx, tx, updateSQL, args)

	return execErr
}

// insertBook persists one book and returns the generated identifier read
// back from the insert itself, so field-identical rows in one batch each
// get their own id.
func (l Library) insertBook(ctx context.Context, tx adapters.DBTx, book library.Book) (int64, error) {
	insertSQL, args, buildErr := l.builder().
		Insert(l.bookTableName).
		Cols(colCategory, colTitle, colPress, colPublishYear, colAuthor, colPrice, colStock).
		Vals(goqu.Vals{book.Category, book.Title, book.Press, book.PublishYear, book.Author, book.Price, book.Stock}).
		Returning(colBookID).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return 0, errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	rows, queryErr := l.queryTx(ctx, tx, insertSQL, args)
	if queryErr != nil {
		return 0, queryErr
	}
	defer l.closeRows(rows)

	if !rows.Next() {
		return 0, library.ErrExecFailed
	}

	var bookID int64
	if scanErr := rows.Scan(&bookID); scanErr != nil {
		l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
		return 0, errors.Join(library.ErrScanRowFailed, scanErr)
	}

	return bookID, nil
}

// hasOpenLoan reports whether any open borrow record matches the condition.
func (l Library) hasOpenLoan(ctx context.Context, tx adapters.DBTx, condition goqu.Expression) (bool, error) {
	selectSQL, args, buildErr := l.builder().
		From(l.borrowTableName).
		Select(goqu.L("1")).
		Where(condition, goqu.C(colReturnTime).Eq(library.NotReturned)).
		Limit(1).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return false, errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	rows, queryErr := l.queryTx(ctx, tx, selectSQL, args)
	if queryErr != nil {
		return false, queryErr
	}
	defer l.closeRows(rows)

	return rows.Next(), nil
}
