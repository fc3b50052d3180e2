package entity

// CacheStatus is the freshness class of a stored stock record.
type CacheStatus string

const (
	CacheFresh   CacheStatus = "fresh"   // younger than the cache TTL
	CacheStale   CacheStatus = "stale"   // older than the TTL but inside the stale limit
	CacheExpired CacheStatus = "expired" // beyond the stale limit
)
