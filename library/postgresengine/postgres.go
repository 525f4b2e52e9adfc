// Package postgresengine implements the transactional library management
// core on PostgreSQL.
//
// Every public operation runs synchronously inside one transaction: it
// performs its guarded checks under row-level locks, applies its writes,
// commits, and returns a library.Result. Any failure anywhere in the
// sequence rolls the transaction back, so partial effects are never
// observable. Read-only operations run directly on the connection.
//
// The engine works with pgxpool.Pool, sql.DB, or sqlx.DB connections
// through the internal adapters package.
package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/PeiPei233/Library-Management-System/library"
	"github.com/PeiPei233/Library-Management-System/library/postgresengine/internal/adapters"
)

const (
	defaultBookTableName   = "book"
	defaultCardTableName   = "card"
	defaultBorrowTableName = "borrow"
	defaultLockTimeout     = 5 * time.Second

	dialectPostgres = "postgres"

	colBookID      = "book_id"
	colCategory    = "category"
	colTitle       = "title"
	colPress       = "press"
	colPublishYear = "publish_year"
	colAuthor      = "author"
	colPrice       = "price"
	colStock       = "stock"
	colCardID      = "card_id"
	colName        = "name"
	colDepartment  = "department"
	colType        = "type"
	colBorrowTime  = "borrow_time"
	colReturnTime  = "return_time"

	logMsgBuildQueryFailed = "failed to build query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgBeginTxFailed    = "failed to begin database transaction"
	logMsgCommitFailed     = "failed to commit database transaction"
	logMsgRollbackFailed   = "failed to roll back database transaction"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "library operation: "
	logMsgOperationFailed  = "library operation failed: "

	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrDurationMS = "duration_ms"
	logAttrKind       = "kind"
	logAttrBookID     = "book_id"
	logAttrCardID     = "card_id"
	logAttrCount      = "count"

	sqlStateUniqueViolation = "23505"
)

type sqlQueryString = string
type sqlArgs = []any

// Logger interface for SQL query logging, operational messages, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Library is the PostgreSQL implementation of the library management core:
// catalog, membership, and the loan ledger over the three relations.
// It leverages a database adapter and supports customizable logging,
// table configuration, and lock timeouts.
type Library struct {
	db              adapters.DBAdapter
	bookTableName   string
	cardTableName   string
	borrowTableName string
	lockTimeout     time.Duration
	logger          Logger
}

// NewLibraryFromPGXPool creates a new Library engine using a pgx Pool with optional configuration.
func NewLibraryFromPGXPool(db *pgxpool.Pool, options ...Option) (Library, error) {
	if db == nil {
		return Library{}, library.ErrNilDatabaseConnection
	}

	return newLibrary(adapters.NewPGXAdapter(db), options...)
}

// NewLibraryFromSQLDB creates a new Library engine using a sql.DB with optional configuration.
func NewLibraryFromSQLDB(db *sql.DB, options ...Option) (Library, error) {
	if db == nil {
		return Library{}, library.ErrNilDatabaseConnection
	}

	return newLibrary(adapters.NewSQLAdapter(db), options...)
}

// NewLibraryFromSQLX creates a new Library engine using a sqlx.DB with optional configuration.
func NewLibraryFromSQLX(db *sqlx.DB, options ...Option) (Library, error) {
	if db == nil {
		return Library{}, library.ErrNilDatabaseConnection
	}

	return newLibrary(adapters.NewSQLXAdapter(db), options...)
}

func newLibrary(db adapters.DBAdapter, options ...Option) (Library, error) {
	lib := Library{
		db:              db,
		bookTableName:   defaultBookTableName,
		cardTableName:   defaultCardTableName,
		borrowTableName: defaultBorrowTableName,
		lockTimeout:     defaultLockTimeout,
	}

	for _, option := range options {
		if err := option(&lib); err != nil {
			return Library{}, err
		}
	}

	return lib, nil
}

/***** transaction plumbing *****/

// beginTx starts a transaction and bounds lock waits so that operations
// fail fast as a retryable storage error instead of hanging on a lock.
func (l Library) beginTx(ctx context.Context) (adapters.DBTx, error) {
	tx, beginErr := l.db.BeginTx(ctx)
	if beginErr != nil {
		l.logError(logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return nil, errors.Join(library.ErrBeginTxFailed, beginErr)
	}

	// lock_timeout must be a literal, but the value is engine configuration,
	// never caller input.
	setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())
	if _, execErr := tx.Exec(ctx, setTimeout); execErr != nil {
		l.rollbackTx(ctx, tx)
		return nil, errors.Join(library.ErrBeginTxFailed, execErr)
	}

	return tx, nil
}

func (l Library) commitTx(ctx context.Context, tx adapters.DBTx) error {
	if commitErr := tx.Commit(ctx); commitErr != nil {
		l.logError(logMsgCommitFailed, logAttrError, commitErr.Error())
		l.rollbackTx(ctx, tx)

		return errors.Join(library.ErrCommitFailed, commitErr)
	}

	return nil
}

// rollbackTx rolls back and only logs a failure to do so; the business
// failure that triggered the rollback is what the caller reports.
func (l Library) rollbackTx(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		l.logWarn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

// inTransaction runs fn inside one transaction, committing when fn
// succeeds and rolling back when it fails.
func (l Library) inTransaction(ctx context.Context, fn func(tx adapters.DBTx) error) error {
	tx, beginErr := l.beginTx(ctx)
	if beginErr != nil {
		return beginErr
	}

	if err := fn(tx); err != nil {
		l.rollbackTx(ctx, tx)
		return err
	}

	return l.commitTx(ctx, tx)
}

/***** query plumbing *****/

func (l Library) queryTx(ctx context.Context, tx adapters.DBTx, query sqlQueryString, args sqlArgs) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := tx.Query(ctx, query, args...)
	l.logQueryWithDuration(query, time.Since(start))

	if queryErr != nil {
		l.logError(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, query)
		return nil, errors.Join(library.ErrQueryFailed, queryErr)
	}

	return rows, nil
}

func (l Library) execTx(ctx context.Context, tx adapters.DBTx, query sqlQueryString, args sqlArgs) (int64, error) {
	start := time.Now()
	result, execErr := tx.Exec(ctx, query, args...)
	l.logQueryWithDuration(query, time.Since(start))

	if execErr != nil {
		l.logError(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, query)
		return 0, errors.Join(library.ErrExecFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(library.ErrExecFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

func (l Library) queryDB(ctx context.Context, query sqlQueryString, args sqlArgs) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := l.db.Query(ctx, query, args...)
	l.logQueryWithDuration(query, time.Since(start))

	if queryErr != nil {
		l.logError(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, query)
		return nil, errors.Join(library.ErrQueryFailed, queryErr)
	}

	return rows, nil
}

// closeRows safely closes database rows and logs any errors.
func (l Library) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		l.logWarn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (l Library) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// isUniqueViolation reports whether err is a unique constraint violation.
// The pgx driver surfaces a typed PgError; the lib/pq and sqlx paths are
// covered by the SQLSTATE in the error text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation
	}

	return strings.Contains(err.Error(), "SQLSTATE "+sqlStateUniqueViolation) ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

/***** logging *****/

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (l Library) logQueryWithDuration(query sqlQueryString, duration time.Duration) {
	if l.logger != nil {
		l.logger.Debug(logMsgSQLExecuted, logAttrDurationMS, l.durationToMilliseconds(duration), logAttrQuery, query)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (l Library) logOperation(action string, args ...any) {
	if l.logger != nil {
		l.logger.Info(logMsgOperation+action, args...)
	}
}

// logFailure logs a failed operation at info level; business rule failures
// are expected outcomes, not errors.
func (l Library) logFailure(action string, err error) {
	if l.logger != nil {
		l.logger.Info(logMsgOperationFailed+action, logAttrKind, library.KindOf(err).String(), logAttrError, err.Error())
	}
}

func (l Library) logWarn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}

func (l Library) logError(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (l Library) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
