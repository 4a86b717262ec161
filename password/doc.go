// Package password provides argon2id hashing with self-describing
// PHC-formatted digests and constant-time verification.
package password
