package domain

import "math"

// PageRequest is the raw pagination input of a list call. The Has* flags
// distinguish an explicit zero from an absent parameter.
type PageRequest struct {
	Page      int
	Limit     int
	Offset    int
	HasPage   bool
	HasLimit  bool
	HasOffset bool
}

// Page is a normalized LIMIT/OFFSET pair.
type Page struct {
	Limit  int
	Offset int
}

// PagePolicy turns a PageRequest into a Page with the same rule on every list
// endpoint.
type PagePolicy struct {
	DefaultLimit int
	MaxLimit     int
}

// MaxPage bounds the page number so the computed offset cannot overflow.
const MaxPage = 1_000_000

// DefaultPagePolicy matches the list bounds used across the API.
var DefaultPagePolicy = PagePolicy{DefaultLimit: 50, MaxLimit: 200}

// Normalize applies the policy:
//  1. limit and offset both present: use them.
//  2. page present: offset = (page-1)*limit, limit defaulting when absent.
//  3. otherwise (nothing, or only one of limit/offset): defaults.
//
// The limit is clamped to [1, MaxLimit] and the offset is never negative.
func (p PagePolicy) Normalize(req PageRequest) Page {
	page := Page{Limit: p.DefaultLimit}

	switch {
	case req.HasLimit && req.HasOffset:
		page.Limit = req.Limit
		page.Offset = req.Offset
	case req.HasPage:
		if req.HasLimit {
			page.Limit = req.Limit
		}
		page.Limit = p.clamp(page.Limit)
		n := min(max(req.Page, 1), MaxPage)
		if page.Limit > 0 && n-1 > math.MaxInt/page.Limit {
			n = 1 + math.MaxInt/page.Limit
		}
		page.Offset = (n - 1) * page.Limit
	}

	page.Limit = p.clamp(page.Limit)
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}

func (p PagePolicy) clamp(limit int) int {
	if limit < 1 {
		return p.DefaultLimit
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		return p.MaxLimit
	}
	return limit
}
