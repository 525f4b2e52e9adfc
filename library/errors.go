package library

import "errors"

// Domain failures. Each public operation maps these onto a FailureKind at
// the Result boundary; internally they are joined with the causing error.
var (
	ErrBookNotFound         = errors.New("book not found")
	ErrCardNotFound         = errors.New("card does not exist")
	ErrLoanNotOpen          = errors.New("book is not borrowed or has already been returned")
	ErrStockWouldGoNegative = errors.New("stock cannot be negative")
	ErrBookOutOfStock       = errors.New("book does not exist or has no stock")
	ErrBookAlreadyBorrowed  = errors.New("book is already borrowed and not returned")
	ErrReturnBeforeBorrow   = errors.New("return time is not later than borrow time")
	ErrCardAlreadyExists    = errors.New("card already exists")
	ErrBookHasOpenLoans     = errors.New("book is borrowed but not returned")
	ErrCardHasOpenLoans     = errors.New("card has borrowed books not yet returned")
)

// Storage failures. These indicate transaction, connection, or query
// construction problems rather than a violated business rule.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("empty table name supplied")
	ErrBuildingQueryFailed   = errors.New("building database query failed")
	ErrBeginTxFailed         = errors.New("beginning database transaction failed")
	ErrCommitFailed          = errors.New("committing database transaction failed")
	ErrQueryFailed           = errors.New("database query execution failed")
	ErrExecFailed            = errors.New("database execution failed")
	ErrScanRowFailed         = errors.New("scanning database row failed")
)

// FailureKind classifies a failed Result for callers that branch on the
// category rather than the message.
type FailureKind int

const (
	// KindNone marks a successful Result.
	KindNone FailureKind = iota

	// KindNotFound: a referenced book, card, or loan is absent.
	KindNotFound

	// KindConflict: a business invariant would be violated (duplicate card,
	// negative stock, loan already open or closed, deletion blocked).
	KindConflict

	// KindValidation: malformed input, owned by the caller layer.
	KindValidation

	// KindStorage: transaction, lock, or connection failure; retryable.
	KindStorage
)

// String provides a string representation of FailureKind for logging.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "storage"
	}
}

// KindOf classifies an error into a FailureKind. Unrecognized errors are
// treated as storage failures, the safe assumption for infrastructure
// problems surfacing from the engine.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone

	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrCardNotFound):
		return KindNotFound

	case errors.Is(err, ErrLoanNotOpen),
		errors.Is(err, ErrStockWouldGoNegative),
		errors.Is(err, ErrBookOutOfStock),
		errors.Is(err, ErrBookAlreadyBorrowed),
		errors.Is(err, ErrReturnBeforeBorrow),
		errors.Is(err, ErrCardAlreadyExists),
		errors.Is(err, ErrBookHasOpenLoans),
		errors.Is(err, ErrCardHasOpenLoans):
		return KindConflict

	case errors.Is(err, ErrInvalidCardType):
		return KindValidation

	default:
		return KindStorage
	}
}
