// Package adapters provides database adapter implementations for the PostgreSQL library engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgxpool.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the engine to work seamlessly with any
// supported database connection type.
//
// In addition to plain query execution, the adapters expose transaction handles
// (DBTx) so the engine can hold row locks across check-then-act sequences and
// commit or roll back multiple writes as one unit.
package adapters
