package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/quantmind-br/whyml-go/internal/utils"
)

// GenerateKey generates a cache key from a source identifier.
// The key is a SHA256 hash of the normalized URL; identifiers that are not
// absolute URLs are hashed as given.
func GenerateKey(sourceID string) string {
	normalized, err := utils.NormalizeURL(sourceID)
	if err != nil {
		normalized = sourceID
	}
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// GenerateKeyWithPrefix generates a cache key with a prefix
func GenerateKeyWithPrefix(prefix, sourceID string) string {
	key := GenerateKey(sourceID)
	return prefix + ":" + key
}

// KeyPrefix constants
const (
	PrefixManifest = "manifest"
)

// ManifestKey generates a cache key for raw manifest content
func ManifestKey(sourceID string) string {
	return GenerateKeyWithPrefix(PrefixManifest, sourceID)
}
