// Package postgres implements signon.SignupStore on PostgreSQL via pgx.
// Unique indexes on both email columns back the engine's uniqueness
// invariants; violations surface as the signon Conflict sentinels.
package postgres
