package hfcache

import "fmt"

// CacheKey identifies the parameter tuple a loaded tier was built from
// (spec §4.7's "Cache key matching"): every access validates the current
// configuration against the stored cache key via byte-equality.
type CacheKey struct {
	ParentID    string
	FieldIDHash uint64
	K, R        int
	RateMax     float64
	NRowMax     int
}

func (k CacheKey) String() string {
	return fmt.Sprintf("parent=%s field_hash=%x k=%d r=%d rate_max=%v nrow_max=%d",
		k.ParentID, k.FieldIDHash, k.K, k.R, k.RateMax, k.NRowMax)
}
