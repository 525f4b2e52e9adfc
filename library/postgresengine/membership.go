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
	actionRegisterCard = "register card"
	actionRemoveCard   = "remove card"
	actionShowCards    = "show cards"

	msgRegisterCardOK = "Register card successfully."
	msgRemoveCardOK   = "Remove card successfully."
	msgShowCardsOK    = "Show cards successfully."
)

// RegisterCard persists a new card and assigns its identifier. Two cards
// with the same (name, department, type) tuple are the same identity; the
// second registration fails with a conflict. The in-transaction check
// provides the descriptive message, the unique index on the tuple makes
// the check-then-insert race-safe against a concurrent duplicate.
func (l Library) RegisterCard(ctx context.Context, card *library.Card) library.Result {
	var cardID int64

	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		exists, checkErr := l.cardIdentityExists(ctx, tx, *card)
		if checkErr != nil {
			return checkErr
		}

		if exists {
			return library.ErrCardAlreadyExists
		}

		insertedID, insertErr := l.insertCard(ctx, tx, *card)
		if insertErr != nil {
			if isUniqueViolation(insertErr) {
				return library.ErrCardAlreadyExists
			}

			return insertErr
		}

		cardID = insertedID

		return nil
	})

	if txErr != nil {
		l.logFailure(actionRegisterCard, txErr)
		return library.FailFromError(txErr)
	}

	card.ID = cardID
	l.logOperation(actionRegisterCard, logAttrCardID, cardID)

	return library.OKWithPayload(msgRegisterCardOK, library.RegisteredCardID{CardID: cardID})
}

// RemoveCard deletes a card unless an open loan still references it.
func (l Library) RemoveCard(ctx context.Context, cardID int64) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		if lockErr := l.lockCardRow(ctx, tx, cardID); lockErr != nil {
			return lockErr
		}

		openLoan, checkErr := l.hasOpenLoan(ctx, tx, goqu.C(colCardID).Eq(cardID))
		if checkErr != nil {
			return checkErr
		}

		if openLoan {
			return library.ErrCardHasOpenLoans
		}

		deleteSQL, args, buildErr := l.builder().
			Delete(l.cardTableName).
			Where(goqu.C(colCardID).Eq(cardID)).
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
		l.logFailure(actionRemoveCard, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionRemoveCard, logAttrCardID, cardID)

	return library.OK(msgRemoveCardOK)
}

// ShowCards returns all cards ordered by identifier ascending, plus count.
func (l Library) ShowCards(ctx context.Context) library.Result {
	selectSQL, args, buildErr := l.builder().
		From(l.cardTableName).
		Select(colCardID, colName, colDepartment, colType).
		Order(goqu.I(colCardID).Asc()).
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

	cards := make([]library.Card, 0)

	for rows.Next() {
		var card library.Card
		var typeCode string

		scanErr := rows.Scan(&card.ID, &card.Name, &card.Department, &typeCode)
		if scanErr != nil {
			l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
			return library.FailFromError(errors.Join(library.ErrScanRowFailed, scanErr))
		}

		cardType, typeErr := library.CardTypeFromCode(typeCode)
		if typeErr != nil {
			return library.FailFromError(typeErr)
		}

		card.Type = cardType
		cards = append(cards, card)
	}

	l.logOperation(actionShowCards, logAttrCount, len(cards))

	return library.OKWithPayload(msgShowCardsOK, library.CardList{Count: len(cards), Cards: cards})
}

/***** shared card helpers *****/

// lockCardRow acquires an exclusive lock on the card row, failing when the
// card does not exist.
func (l Library) lockCardRow(ctx context.Context, tx adapters.DBTx, cardID int64) error {
	selectSQL, args, buildErr := l.builder().
		From(l.cardTableName).
		Select(colCardID).
		Where(goqu.C(colCardID).Eq(cardID)).
		ForUpdate(exp.Wait).
		Prepared(true).
		ToSQL()
	if buildErr != nil {
		l.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return errors.Join(library.ErrBuildingQueryFailed, buildErr)
	}

	rows, queryErr := l.queryTx(ctx, tx, selectSQL, args)
	if queryErr != nil {
		return queryErr
	}
	defer l.closeRows(rows)

	if !rows.Next() {
		return library.ErrCardNotFound
	}

	return nil
}

func (l Library) cardIdentityExists(ctx context.Context, tx adapters.DBTx, card library.Card) (bool, error) {
	selectSQL, args, buildErr := l.builder().
		From(l.cardTableName).
		Select(goqu.L("1")).
		Where(
			goqu.C(colName).Eq(card.Name),
			goqu.C(colDepartment).Eq(card.Department),
			goqu.C(colType).Eq(card.Type.Code()),
		).
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

func (l Library) insertCard(ctx context.Context, tx adapters.DBTx, card library.Card) (int64, error) {
	insertSQL, args, buildErr := l.builder().
		Insert(l.cardTableName).
		Cols(colName, colDepartment, colType).
		Vals(goqu.Vals{card.Name, card.Department, card.Type.Code()}).
		Returning(colCardID).
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

	var cardID int64
	if scanErr := rows.Scan(&cardID); scanErr != nil {
		l.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
		return 0, errors.Join(library.ErrScanRowFailed, scanErr)
	}

	return cardID, nil
}
