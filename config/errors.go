package config

import "github.com/biostream/pgkmer/kerr"

func outOfRange(name string, got, lo, hi int) *kerr.Error {
	if hi < 0 {
		return kerr.New(kerr.OutOfRange, "%s=%d is out of range (must be >= %d)", name, got, lo)
	}
	return kerr.New(kerr.OutOfRange, "%s=%d is out of range [%d,%d]", name, got, lo, hi)
}

func outOfRangeF(name string, got, lo, hi float64) *kerr.Error {
	return kerr.New(kerr.OutOfRange, "%s=%f is out of range [%f,%f]", name, got, lo, hi)
}
