package util

import (
	"crypto/rand"
	"encoding/hex"
)

// ID prefixes by entity.
const (
	PrefixDocument = "doc"
	PrefixSession  = "ses"
	PrefixAsset    = "ast"
	PrefixToken    = "jti"
)

// NewID returns a random identifier, prefixed as "<prefix>_<hex>" when
// prefix is set.
func NewID(prefix string) string {
	bytes := make([]byte, 12)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
