// Package token mints and verifies the signed, expiring tokens used for
// password-reset links. Tokens are HS256 JWTs carrying the bound email and
// an optional key id for future rotation.
package token
