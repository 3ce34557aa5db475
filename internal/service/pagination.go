package service

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// DefaultPageSize is used when no positive page size is configured.
const DefaultPageSize = 10

// Page describes one page of a feed. Number is 1-based and always within
// [1, NumPages]; an empty feed has a single empty page.
type Page struct {
	Number   int
	Size     int
	NumPages int
	Total    int64
}

// Paginate resolves a raw ?page= value against total items. Missing,
// non-numeric and non-positive values give page 1; values past the end
// give the last page.
func Paginate(total int64, size int, raw string) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		number = 1
	}
	number = lo.Clamp(number, 1, numPages)
	return Page{Number: number, Size: size, NumPages: numPages, Total: total}
}

// Offset is the number of items before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasNext() bool     { return p.Number < p.NumPages }
func (p Page) HasOtherPages() bool {
	return p.NumPages > 1
}

func (p Page) PreviousNumber() int { return p.Number - 1 }
func (p Page) NextNumber() int     { return p.Number + 1 }

// Numbers lists the page numbers shown around the current page.
func (p Page) Numbers() []int {
	const window = 2
	first := lo.Clamp(p.Number-window, 1, p.NumPages)
	last := lo.Clamp(p.Number+window, 1, p.NumPages)
	return lo.RangeFrom(first, last-first+1)
}
