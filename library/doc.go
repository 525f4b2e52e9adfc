// Package library provides the core abstractions and types for the
// transactional library management core.
//
// This package defines the entities (Book, Card, Borrow), the uniform
// Result type returned by every public operation, the failure taxonomy,
// and the book query conditions used across different storage engine
// implementations.
//
// The catalog query supports sparse filtering of books based on:
//   - Category (exact match)
//   - Title, press, author (substring match)
//   - Publish year and price ranges (inclusive bounds)
//   - A whitelisted sort column and direction
//
// Key types:
//   - Result: The uniform success/failure/payload/message return shape
//   - BookQuery: Defines criteria for querying the catalog
//   - FailureKind: Classifies failures (NotFound, Conflict, Validation, Storage)
//
// Common usage pattern:
//
//	query := BuildBookQuery().
//		WithCategory("Databases").
//		WithTitleContains("Design").
//		WithMinPublishYear(2015).
//		SortedBy(SortByPrice, Desc).
//		Finalize()
//
//	result := lib.QueryBooks(ctx, query)
//	if !result.OK() {
//		// inspect result.Kind() and result.Message()
//	}
package library
