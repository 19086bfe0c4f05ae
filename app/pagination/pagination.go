package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultPerPage is the page size used by the list views.
const DefaultPerPage = 20

// MaxOffset caps the offset computed for very large page numbers.
const MaxOffset = math.MaxInt32

// Page describes one page of a result set of Total items.
type Page struct {
	Number   int
	NumPages int
	PerPage  int
	Total    int64
}

// ParsePage reads a 1-based page number. Anything that is not an integer
// selects the first page. Integers too large to represent select the last
// page once clamped by New.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return 1
		}
		return math.MaxInt
	}
	if err != nil {
		return 1
	}
	return n
}

// New returns the page closest to requested that exists for total items.
// An empty result set still has one (empty) page.
func New(total int64, perPage, requested int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:   number,
		NumPages: numPages,
		PerPage:  perPage,
		Total:    total,
	}
}

// Offset returns the number of items before page n, at most MaxOffset.
func Offset(n, perPage int) int {
	if n < 1 || perPage < 1 {
		return 0
	}
	if n-1 > MaxOffset/perPage {
		return MaxOffset
	}
	return (n - 1) * perPage
}

func (p Page) Offset() int {
	return Offset(p.Number, p.PerPage)
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) PreviousNumber() int {
	return p.Number - 1
}

func (p Page) NextNumber() int {
	return p.Number + 1
}

// Fetch loads the requested page through load, which returns limit items
// starting at offset and the total count. When the page does not exist the
// nearest valid page is loaded instead.
func Fetch[T any](requested, perPage int, load func(offset, limit int) ([]T, int64, error)) ([]T, Page, error) {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	items, total, err := load(Offset(requested, perPage), perPage)
	if err != nil {
		return nil, Page{}, err
	}

	page := New(total, perPage, requested)
	if page.Number == requested {
		return items, page, nil
	}

	items, total, err = load(page.Offset(), perPage)
	if err != nil {
		return nil, Page{}, err
	}
	return items, New(total, perPage, page.Number), nil
}
