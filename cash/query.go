/*
query.go - Scoped list-query composition

PURPOSE:
  Turns raw list filters plus the caller's scope into a query the store can
  execute. Scope composition happens HERE, once, not in handlers and not in
  SQL scattered around the store.

FAIL-CLOSED CITY FILTER:
  A city-scoped caller asking for a city outside their set gets an
  impossible-match query, not an error. The caller cannot tell "empty result"
  from "forbidden city", so the filter cannot be used to probe which cities
  exist. If no city filter is supplied, the query is implicitly restricted to
  the caller's allowed set. Unrestricted callers get their filter verbatim.

PAGINATION:
  page >= 1 (default 1), limit 1..100 (default 50). Out-of-range values are
  rejected, not clamped. Ordering is fixed: newest createdAt first, ties
  broken by descending id, so pages are stable and deterministic.

SEE ALSO:
  - auth/policy.go: The single-resource scope rules
  - store/sqlite: Executes ListQuery
*/
package cash

import (
	"math"

	"github.com/warp/cashdesk/auth"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

// ListFilter is the raw, unvalidated filter from the caller.
type ListFilter struct {
	Kind  string // "" = any; "income" or "expense"
	City  string // "" = any (subject to scope)
	Page  int    // 0 = default
	Limit int    // 0 = default
}

// ListQuery is the store-executable form of a filter after scope composition.
type ListQuery struct {
	Kind   Kind     // "" = any
	Cities []string // nil = any city
	// MatchNone forces an empty result. Set when a city-scoped caller filters
	// outside their allowed set (fail-closed, not fail-loud).
	MatchNone bool

	Offset int
	Limit  int
}

// ListResult is one page of transactions plus the totals the caller needs to
// compute the page count.
type ListResult struct {
	Items      []Transaction
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// BuildListQuery validates the filter and composes it with the caller's
// scope. Returns a ValidationError for malformed pagination or kind.
func BuildListQuery(f ListFilter, caller auth.Caller) (ListQuery, error) {
	page := f.Page
	if page == 0 {
		page = DefaultPage
	}
	if page < 1 {
		return ListQuery{}, &ValidationError{Field: "page", Message: "must be at least 1"}
	}
	limit := f.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return ListQuery{}, &ValidationError{Field: "limit", Message: "must be between 1 and 100"}
	}

	q := ListQuery{
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	if f.Kind != "" {
		kind, ok := ParseKind(f.Kind)
		if !ok {
			return ListQuery{}, &ValidationError{Field: "type", Message: "must be income or expense"}
		}
		q.Kind = kind
	}

	switch {
	case !caller.CityScoped():
		if f.City != "" {
			q.Cities = []string{f.City}
		}
	case f.City == "":
		q.Cities = caller.AllowedCities
	case caller.CityAllowed(f.City):
		q.Cities = []string{f.City}
	default:
		q.MatchNone = true
	}

	return q, nil
}

// TotalPages computes ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
