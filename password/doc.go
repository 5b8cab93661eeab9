// Package password hashes credentials with argon2id and enforces the
// registration strength policy.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Callers supply plaintext and receive hashes; nothing here stores or logs
// passwords.
package password
