// Package phi builds cache keys that are safe to store and log.
// Raw request parts (drug names, patient-specific fields) are hashed into an
// opaque token so that identifiable health information never appears in the
// cache store, in key listings, or in logs.
package phi

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

// keyVersion is bumped when the hashing scheme changes so stale entries
// from an older scheme are never read back.
const keyVersion = "v1"

// Key is an opaque cache key. The cache layer only accepts this type,
// which keeps raw PHI-bearing strings out of the store by construction.
type Key struct {
	value string
}

// String returns the opaque key token
func (k Key) String() string {
	return k.value
}

// IsZero reports whether the key was never built
func (k Key) IsZero() bool {
	return k.value == ""
}

// Namespace returns the namespace segment of the key
func (k Key) Namespace() string {
	parts := strings.SplitN(k.value, ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// BuildKey hashes the given parts into an opaque key under a namespace.
// The namespace is a non-identifying label ("normalize", "packages") used
// for prefix invalidation; the parts themselves never appear in the output.
// Hashing is deterministic: identical parts always produce identical keys,
// and parts are length-prefixed so ("ab","c") and ("a","bc") cannot collide.
func BuildKey(namespace string, parts ...string) (Key, error) {
	if namespace == "" {
		return Key{}, apperrors.NewInvalidInputError("cache key namespace is required")
	}
	if strings.Contains(namespace, ":") {
		return Key{}, apperrors.NewInvalidInputError("cache key namespace must not contain ':'")
	}
	if len(parts) == 0 {
		return Key{}, apperrors.NewInvalidInputError("at least one cache key part is required")
	}

	h := sha256.New()
	var lenBuf [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(strings.ToLower(strings.TrimSpace(part))))
	}

	digest := hex.EncodeToString(h.Sum(nil))
	return Key{value: fmt.Sprintf("%s:%s:%s", keyVersion, namespace, digest)}, nil
}

// Prefix returns the key prefix shared by every key in a namespace,
// used for bulk invalidation.
func Prefix(namespace string) string {
	return fmt.Sprintf("%s:%s:", keyVersion, namespace)
}
