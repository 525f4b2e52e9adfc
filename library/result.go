package library

import (
	jsoniter "github.com/json-iterator/go"
)

// Result is the uniform outcome of every public operation. It carries a
// success flag, a failure classification, a human-readable message, and an
// optional typed payload. No operation panics or leaks errors across the
// component boundary; callers always receive a Result and must handle both
// outcomes explicitly.
//
// While its properties are exported for serialization, it should only be
// constructed with the supplied factory functions:
//   - OK / OKWithPayload
//   - Fail / FailFromError
type Result struct {
	Ok      bool        `json:"ok"`
	Kind    FailureKind `json:"-"`
	Message string      `json:"message"`
	Payload any         `json:"payload,omitempty"`
}

// OK creates a successful Result without a payload.
func OK(message string) Result {
	return Result{Ok: true, Kind: KindNone, Message: message}
}

// OKWithPayload creates a successful Result carrying a payload.
func OKWithPayload(message string, payload any) Result {
	return Result{Ok: true, Kind: KindNone, Message: message, Payload: payload}
}

// Fail creates a failed Result with an explicit classification.
func Fail(kind FailureKind, message string) Result {
	return Result{Ok: false, Kind: kind, Message: message}
}

// FailFromError creates a failed Result from an error, classifying it with
// KindOf and using the error text as the message.
func FailFromError(err error) Result {
	return Result{Ok: false, Kind: KindOf(err), Message: err.Error()}
}

// ToJSON serializes the Result for presentation-layer consumers.
func (r Result) ToJSON() ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(r)
}

/***** Payloads *****/

// StoredBookID is the payload of a successful single book creation.
type StoredBookID struct {
	BookID int64 `json:"book_id"`
}

// StoredBookIDs is the payload of a successful batch book creation,
// carrying the assigned identifiers in input order.
type StoredBookIDs struct {
	BookIDs []int64 `json:"book_ids"`
}

// RegisteredCardID is the payload of a successful card registration.
type RegisteredCardID struct {
	CardID int64 `json:"card_id"`
}

// BookQueryResults is the payload of a catalog query: the full matching
// set in deterministic order, plus its count.
type BookQueryResults struct {
	Count int    `json:"count"`
	Books []Book `json:"books"`
}

// CardList is the payload of listing all cards, ordered by identifier.
type CardList struct {
	Count int    `json:"count"`
	Cards []Card `json:"cards"`
}

// BorrowHistories is the payload of a card's lending history, ordered by
// borrow time descending with book identifier as tie-break.
type BorrowHistories struct {
	Count int                 `json:"count"`
	Items []BorrowHistoryItem `json:"items"`
}
