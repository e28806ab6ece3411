package index

import "github.com/biostream/pgkmer/kerr"

// outOfRangeQuery reports a query string shorter than the minimum spec §6
// requires for extract_query.
func outOfRangeQuery(queryText string) *kerr.Error {
	return kerr.New(kerr.OutOfRange, "query text length %d is below the minimum of 8", len(queryText)).
		WithHint("pass a query of at least 8 characters")
}
