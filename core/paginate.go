package core

import "strconv"

// Page describes one page of a paginated listing.
type Page struct {
	Number   int  `json:"number"`
	NumPages int  `json:"num_pages"`
	Count    int  `json:"count"`
	PerPage  int  `json:"per_page"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_previous"`
}

// NewPage resolves the requested page number against count items split in pages of perPage.
// A missing or non-integer page gives the first page; an out of range page gives the last one.
// There is always at least one (possibly empty) page.
func NewPage(rawPage string, count, perPage int) Page {
	if perPage < 1 {
		perPage = 1
	}
	numPages := (count + perPage - 1) / perPage
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(rawPage)
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	return Page{
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
		HasNext:  number < numPages,
		HasPrev:  number > 1,
	}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Bounds returns the [lo, hi) slice bounds of the page within n items.
func (p Page) Bounds(n int) (int, int) {
	lo := p.Offset()
	if lo > n {
		lo = n
	}
	hi := lo + p.PerPage
	if hi > n {
		hi = n
	}
	return lo, hi
}
