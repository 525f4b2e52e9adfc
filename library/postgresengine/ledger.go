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
	actionBorrowBook    = "borrow book"
	actionReturnBook    = "return book"
	actionBorrowHistory = "query borrow history"

	msgBorrowBookOK    = "Borrow book successfully."
	msgReturnBookOK    = "Return book successfully."
	msgBorrowHistoryOK = "Query borrow history successfully."
)

// BorrowBook opens a loan: it inserts an open borrow record and decrements
// the book's stock as one unit.
//
// The book row is locked exclusively across the stock check and the
// decrement, so two concurrent calls against the last remaining copy
// resolve to exactly one success and one stock-exhaustion conflict. The
// at-most-one-open-loan rule per (card, book) pair is checked inside the
// transaction and additionally enforced by a partial unique index, so a
// concurrent duplicate surfaces as the same conflict.
func (l Library) BorrowBook(ctx context.Context, cardID, bookID int64, borrowTime int64) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		if lockErr := l.lockCardRow(ctx, tx, cardID); lockErr != nil {
			return lockErr
		}

		openLoan, checkErr := l.hasOpenLoan(ctx, tx,
			goqu.And(goqu.C(colCardID).Eq(cardID), goqu.C(colBookID).Eq(bookID)))
		if checkErr != nil {
			return checkErr
		}

		if openLoan {
			return library.ErrBookAlreadyBorrowed
		}

		stock, lockErr := l.lockBookStock(ctx, tx, bookID)
		if lockErr != nil {
			if errors.Is(lockErr, library.ErrBookNotFound) {
				return library.ErrBookOutOfStock
			}

			return lockErr
		}

		if stock == 0 {
			return library.ErrBookOutOfStock
		}

		if insertErr := l.insertBorrow(ctx, tx, cardID, bookID, borrowTime); insertErr != nil {
			return insertErr
		}

		return l.applyStockDelta(ctx, tx, bookID, -1)
	})

	if txErr != nil {
		l.logFailure(actionBorrowBook, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionBorrowBook, logAttrCardID, cardID, logAttrBookID, bookID)

	return library.OK(msgBorrowBookOK)
}

// ReturnBook closes the open loan for the (card, book) pair: it stamps the
// return time and increments the book's stock as one unit. The stored
// borrow time is authoritative; the return time must be strictly later.
func (l Library) ReturnBook(ctx context.Context, cardID, bookID int64, returnTime int64) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		borrowTime, lockErr := l.lockOpenLoan(ctx, tx, cardID, bookID)
		if lockErr != nil {
			return lockErr
		}

		if returnTime <= borrowTime {
			return library.ErrReturnBeforeBorrow
		}

		updateSQL, args, buildErr := l.builder().
			Update(l.borrowTableName).
			Set(goqu.Record{colReturnTime: returnTime}).
			Where(
				goqu.C(colCardID).Eq(cardID),
				goqu.C(colBookID).Eq(bookID),
				goqu.C(colReturnTime).Eq(library.NotReturned),
			).
			Prepared(true).
			ToSQL()
		if buildErr != nil {
			l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
			return errors.Join(library.ErrBuildingQueryFailed, buildErr)
		}

		if _, execErr := l.execTx(ctx, tx, updateSQL, args); execErr != nil {
			return execErr
		}

		return l.applyStockDelta(ctx, tx, bookID, 1)
	})

	if txErr != nil {
		l.logFailure(actionReturnBook, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionReturnBook, logAttrCardID, cardID, logAttrBookID, bookID)

	return library.OK(msgReturnBookOK)
}

// ShowBorrowHistory returns every borrow record of a card, open and
// closed, joined with the book's descriptive fields, ordered by borrow
// time descending with book identifier ascending as tie-break.
func (l Library) ShowBorrowHistory(ctx context.Context, cardID int64) library.Result {
	borrowTable := goqu.T(l.borrowTableName)
	bookTable := goqu.T(l.bookTableName)

	selectSQL, args, buildErr := l.builder().
		From(borrowTable).
		Join(bookTable, goqu.On(borrowTable.Col(colBookID).Eq(bookTable.Col(colBookID)))).
		Select(
			borrowTable.Col(colCardID), borrowTable.Col(colBookID),
			borrowTable.Col(colBorrowTime), borrowTable.Col(colReturnTime),
			bookTable.Col(colCategory), bookTable.Col(colTitle), bookTable.Col(colPress),
			bookTable.Col(colPublishYear), bookTable.Col(colAuthor), bookTable.Col(colPrice),
		).
		Where(borrowTable.Col(colCardID).Eq(cardID)).
		Order(borrowTable.Col(colBorrowTime).Desc(), borrowTable.Col(colBookID).Asc()).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return library.FailFromError(errors.Join(library.ErrBuildingQueryFailed, buildErr))
	}

	rows, queryErr := l.queryDB(ctx, selectSQL, args)
	if queryErr != nil {
		return library.FailFromError(queryErr)
	}
	defer l.closeRows(rows)

	items := make([]library.BorrowHistoryItem, 0)

	for rows.Next() {
		var item library.BorrowHistoryItem

		scanErr := rows.Scan(
			&item.CardID, &item.BookID, &item.BorrowTime, &item.ReturnTime,
			&item.Category, &item.Title, &item.Press,
			&item.PublishYear, &item.Author, &item.Price)
		if scanErr != nil {
			l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
			return library.FailFromError(errors.Join(library.ErrScanRowFailed, scanErr))
		}

		item.Returned = item.ReturnTime != library.NotReturned
		items = append(items, item)
	}

	l.logOperation(actionBorrowHistory, logAttrCardID, cardID, logAttrCount, len(items))

	return library.OKWithPayload(msgBorrowHistoryOK, library.BorrowHistories{Count: len(items), Items: items})
}

/***** shared loan helpers *****/

// lockOpenLoan acquires an exclusive lock on the open borrow row for the
// pair and returns its borrow time, so a concurrent return of the same
// loan cannot double-increment the stock.
func (l Library) lockOpenLoan(ctx context.Context, tx adapters.DBTx, cardID, bookID int64) (int64, error) {
	selectSQL, args, buildErr := l.builder().
		From(l.borrowTableName).
		Select(colBorrowTime).
		Where(
			goqu.C(colCardID).Eq(cardID),
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colReturnTime).Eq(library.NotReturned),
		).
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
		return 0, library.ErrLoanNotOpen
	}

	var borrowTime int64
	if scanErr := rows.Scan(&borrowTime); scanErr != nil {
		l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
		return 0, errors.Join(library.ErrScanRowFailed, scanErr)
	}

	return borrowTime, nil
}

func (l Library) insertBorrow(ctx context.Context, tx adapters.DBTx, cardID, bookID int64, borrowTime int64) error {
	insertSQL, args, buildErr := l.builder().
		Insert(l.borrowTableName).
		Cols(colCardID, colBookID, colBorrowTime, colReturnTime).
		Vals(goqu.Vals{cardID, bookID, borrowTime, library.NotReturned}).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	if _, execErr := l.execTx(ctx, tx, insertSQL, args); execErr != nil {
		if isUniqueViolation(execErr) {
			return library.ErrBookAlreadyBorrowed
		}

		return execErr
	}

	return nil
}
