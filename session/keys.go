package session

const (
	// RevocationPrefix namespaces revoked tids.
	RevocationPrefix = "blacklist_jti:"
	// RefreshPrefix namespaces refresh credentials by principal.
	RefreshPrefix = "refresh:"

	revokedMarker = "1"
)

// RevocationKey returns the store key for tid.
func RevocationKey(tid string) string {
	return RevocationPrefix + tid
}

// RefreshKey returns the store key for principal.
func RefreshKey(principal string) string {
	return RefreshPrefix + principal
}
