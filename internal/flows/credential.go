package flows

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewRefreshCredential mints an opaque refresh credential.
func NewRefreshCredential() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// DigestRefreshCredential returns the hex SHA-256 of credential. Only digests
// are written to the refresh store.
func DigestRefreshCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// digestsEqual compares two hex digests in constant time.
func digestsEqual(stored, supplied string) bool {
	if len(stored) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
