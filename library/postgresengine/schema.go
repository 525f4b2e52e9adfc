package postgresengine

import (
	"context"
	"fmt"

	"github.com/PeiPei233/Library-Management-System/library"
	"github.com/PeiPei233/Library-Management-System/library/postgresengine/internal/adapters"
)

const (
	actionResetDatabase = "reset database"

	msgResetDatabaseOK = "Reset database successfully."
)

// ResetDatabase drops and recreates the three relations empty, inside one
// transaction. Business invariants that can be expressed as constraints
// are declared in the schema as a second line of defense behind the
// engine's locking discipline: non-negative stock, unique card identity,
// and at most one open loan per (card, book) pair.
func (l Library) ResetDatabase(ctx context.Context) library.Result {
	txErr := l.inTransaction(ctx, func(tx adapters.DBTx) error {
		for _, statement := range l.schemaStatements() {
			if _, execErr := l.execTx(ctx, tx, statement, nil); execErr != nil {
				return execErr
			}
		}

		return nil
	})

	if txErr != nil {
		l.logFailure(actionResetDatabase, txErr)
		return library.FailFromError(txErr)
	}

	l.logOperation(actionResetDatabase)

	return library.OK(msgResetDatabaseOK)
}

// schemaStatements builds the DDL for the configured table names. Table
// names are engine configuration, never caller input.
func (l Library) schemaStatements() []string {
	book := l.bookTableName
	card := l.cardTableName
	borrow := l.borrowTableName

	return []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, borrow),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, book),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, card),

		fmt.Sprintf(`CREATE TABLE %s (
			card_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name VARCHAR(63) NOT NULL,
			department VARCHAR(63) NOT NULL,
			type VARCHAR(1) NOT NULL CHECK (type IN ('S', 'T')),
			CONSTRAINT %s_identity UNIQUE (name, department, type)
		)`, card, card),

		fmt.Sprintf(`CREATE TABLE %s (
			book_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			category VARCHAR(63) NOT NULL,
			title VARCHAR(255) NOT NULL,
			press VARCHAR(255) NOT NULL,
			publish_year INTEGER NOT NULL,
			author VARCHAR(63) NOT NULL,
			price DOUBLE PRECISION NOT NULL DEFAULT 0.0,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`, book),

		fmt.Sprintf(`CREATE TABLE %s (
			card_id BIGINT NOT NULL REFERENCES %s (card_id) ON DELETE CASCADE,
			book_id BIGINT NOT NULL REFERENCES %s (book_id) ON DELETE CASCADE,
			borrow_time BIGINT NOT NULL,
			return_time BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (card_id, book_id, borrow_time)
		)`, borrow, card, book),

		fmt.Sprintf(`CREATE UNIQUE INDEX %s_open_loan ON %s (card_id, book_id) WHERE return_time = 0`,
			borrow, borrow),
	}
}
