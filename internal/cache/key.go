package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// maxKeyLength bounds cache key size; longer keys are replaced by a
// hash so Redis key memory stays predictable.
const maxKeyLength = 256

// RequestKey builds the cache key for a proxied request. The key
// covers the service, method, path, and raw query so distinct
// resources never collide.
func RequestKey(service string, r *http.Request) string {
	key := service + ":" + r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	if len(key) > maxKeyLength {
		sum := sha256.Sum256([]byte(key))
		return service + ":" + hex.EncodeToString(sum[:])
	}
	return key
}
