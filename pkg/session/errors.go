package session

import "errors"

var (
	// ErrAPIKeysNotConfigured is surfaced to get_api_keys/set_api_keys
	// callers when the hub was built without a key store.
	ErrAPIKeysNotConfigured = errors.New("api key storage is not configured")
)
