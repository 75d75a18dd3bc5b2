package constants

import (
	"fmt"
	"time"
)

// Redis key layout for the tiquetera client and sandbox
// Pattern: tiquetera:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	// Catalog snapshots outlive the in-memory TTL so a restarted process can
	// still serve stale data when the backend is down.
	TTL_CATALOG_SNAPSHOT = 7 * 24 * time.Hour
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "tiquetera"
)

// ================== CATALOGS MODULE ==================

const (
	CACHE_KEY_CATALOG_SNAPSHOT = CACHE_PREFIX + ":catalogs:snapshot" // + :namespace
)

// ================== SESSION MODULE ==================

const (
	CACHE_KEY_SESSION = CACHE_PREFIX + ":session:" // + profile
)

// ================== RATE LIMIT MODULE ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit" // + :ip:type
)

// BuildCatalogSnapshotKey scopes a snapshot to one backend deployment
func BuildCatalogSnapshotKey(namespace string) string {
	if namespace == "" {
		namespace = "default"
	}
	return fmt.Sprintf("%s:%s", CACHE_KEY_CATALOG_SNAPSHOT, namespace)
}

// BuildSessionKey returns the key holding a profile's credentials
func BuildSessionKey(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return CACHE_KEY_SESSION + profile
}

// BuildRateLimitKey returns the sliding window key for a client and route class
func BuildRateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s:%s:%s", CACHE_KEY_RATE_LIMIT, clientIP, limitType)
}
