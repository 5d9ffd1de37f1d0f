package utils

import "strconv"

const (
	pageSizeDefault = 20

	// PageSizeMax caps the limit of a single page.
	PageSizeMax = 100

	// TotalCountHeader carries the size of the whole list next to a page body.
	TotalCountHeader = "X-Total-Count"
)

// Page is an offset window over a list ordered by the server.
type Page struct {
	Offset int
	Limit  int
}

// NewPage applies defaults to optional query values. A missing or negative
// offset is 0, a missing or non-positive limit is 20, and the limit is capped
// at PageSizeMax.
func NewPage(offset *int, limit *int) Page {
	p := Page{Limit: pageSizeDefault}

	if offset != nil && *offset >= 0 {
		p.Offset = *offset
	}

	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, PageSizeMax)
	}

	return p
}

// Next returns the window following p after fetched items came back and the
// server reported total. ok is false once the list is exhausted or the page
// came back empty.
func (p Page) Next(fetched int, total int64) (Page, bool) {
	if fetched <= 0 {
		return p, false
	}
	next := Page{Offset: p.Offset + fetched, Limit: p.Limit}
	if int64(next.Offset) >= total {
		return p, false
	}
	return next, true
}

// FormatTotalCount renders total for TotalCountHeader.
func FormatTotalCount(total int64) string {
	return strconv.FormatInt(total, 10)
}

// ParseTotalCount reads a TotalCountHeader value. ok is false when the header
// is missing or malformed.
func ParseTotalCount(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}
