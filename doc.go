// Package signon implements the credential-issuing core of an email/password
// identity service: OTP-gated signup sessions, exactly-once account creation,
// password login, and signed password-reset tokens.
//
// The package is designed for concurrent server workloads: [Engine] methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. The engine holds no mutable request state; everything
// durable lives in the injected [SignupStore] (relational) and [CodeStore]
// (expiring key-value), so any number of stateless handlers can share one
// Engine.
//
// # Architecture boundaries
//
// signon is the public surface. It exposes [Engine], [Builder], [Config], the
// capability interfaces ([SignupStore], [CodeStore], [Notifier]), and value
// types ([Account], [SignupSession], [Identity]). Backing implementations live
// in subpackages: postgres (pgx), mail (SMTP), password (argon2id), token
// (signed reset tokens). None of them import signon's orchestration back.
//
// # What this package must NOT do
//
//   - Issue bearer credentials. Login ends at "credentials are valid";
//     session/token issuance is the embedding application's concern.
//   - Leak secrets. OTP values, reset tokens, password hashes, and session IDs
//     never appear in returned errors or audit payloads.
//   - Read ambient state. Clock, randomness, TTLs, and signing material are
//     all injected at construction.
package signon
