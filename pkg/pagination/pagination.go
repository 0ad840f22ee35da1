package pagination

import (
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// SortOrder is either ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
}

// Meta is returned alongside every paged list.
type Meta struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasMore     bool  `json:"hasMore"`
	Limit       int   `json:"limit"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the page number to 1 or above.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ParseSortOrder maps free-form input to a SortOrder, defaulting to desc.
func ParseSortOrder(value string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(value), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// Normalize returns a copy of p with limits applied and SortBy resolved
// against the allowed column map. Unknown sort keys fall back to fallback.
func (p Params) Normalize(allowed map[string]string, fallback string) Params {
	out := Params{
		Page:      NormalizePage(p.Page),
		Limit:     NormalizeLimit(p.Limit),
		SortOrder: p.SortOrder,
	}
	if out.SortOrder != SortAsc {
		out.SortOrder = SortDesc
	}
	if column, ok := allowed[strings.TrimSpace(p.SortBy)]; ok {
		out.SortBy = column
	} else {
		out.SortBy = fallback
	}
	return out
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// OrderClause renders "column dir" for ORDER BY. SortBy must already be
// resolved through Normalize.
func (p Params) OrderClause() string {
	return p.SortBy + " " + string(p.SortOrder)
}

// NewMeta builds the response metadata for a page of results.
func NewMeta(p Params, total int64) Meta {
	limit := NormalizeLimit(p.Limit)
	page := NormalizePage(p.Page)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Meta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasMore:     page < totalPages,
		Limit:       limit,
	}
}
