package domain

import (
	"fmt"
	"strings"
)

// CacheKey addresses one rendered artifact. Every key embeds the tier, so a public
// lookup can never resolve to private content.
type CacheKey struct {
	Username string
	Tier     Tier
	Format   Format
}

// String renders the key as dashboard:{username}:{tier}:{format}
func (k CacheKey) String() string {
	return fmt.Sprintf("dashboard:%s:%s:%s", NormalizeUsername(k.Username), k.Tier, k.Format)
}

// Validate rejects keys with an empty username or an unknown tier or format
func (k CacheKey) Validate() error {
	if NormalizeUsername(k.Username) == "" {
		return fmt.Errorf("cache key has no username")
	}
	if k.Tier != TierPublic && k.Tier != TierPrivate {
		return fmt.Errorf("cache key %s has unknown tier %q", k, k.Tier)
	}
	for _, f := range Formats {
		if k.Format == f {
			return nil
		}
	}
	return fmt.Errorf("cache key %s has unknown format %q", k, k.Format)
}

// KeysFor returns every key of one tier for a username, in write order
func KeysFor(username string, tier Tier) []CacheKey {
	keys := make([]CacheKey, 0, len(Formats))
	for _, f := range Formats {
		keys = append(keys, CacheKey{Username: username, Tier: tier, Format: f})
	}
	return keys
}

// NormalizeUsername lowercases and trims a GitHub login
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CacheEntry is one payload to be written under a key
type CacheEntry struct {
	Key     CacheKey
	Payload string
}
