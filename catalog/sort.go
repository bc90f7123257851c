package catalog

import (
	"sort"
)

// SortMode selects the order books are listed in.
type SortMode string

const (
	SortPriceAsc     SortMode = "price_asc"
	SortPriceDesc    SortMode = "price_desc"
	SortDiscountAsc  SortMode = "discount_asc"
	SortDiscountDesc SortMode = "discount_desc"
)

// ParseSortMode falls back to cheapest first.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(s); m {
	case SortPriceAsc, SortPriceDesc, SortDiscountAsc, SortDiscountDesc:
		return m
	default:
		return SortPriceAsc
	}
}

// Sort returns a sorted copy of books.
func Sort(books []Book, mode SortMode) []Book {
	out := make([]Book, len(books))
	copy(out, books)
	sort.SliceStable(out, func(i, j int) bool {
		return less(&out[i], &out[j], mode)
	})
	return out
}

func less(a, b *Book, mode SortMode) bool {
	switch mode {
	case SortPriceDesc:
		return a.CurrentPrice().GreaterThan(b.CurrentPrice())
	case SortDiscountAsc:
		// books without discount first, most expensive of them first
		switch {
		case !a.HasDiscount() && !b.HasDiscount():
			return a.Price.GreaterThan(b.Price)
		case !a.HasDiscount():
			return true
		case !b.HasDiscount():
			return false
		}
		return a.DiscountPercent() < b.DiscountPercent()
	case SortDiscountDesc:
		// biggest discount first, then undiscounted from the cheapest
		switch {
		case !a.HasDiscount() && !b.HasDiscount():
			return a.Price.LessThan(b.Price)
		case !b.HasDiscount():
			return a.HasDiscount()
		case !a.HasDiscount():
			return false
		}
		return a.DiscountPercent() > b.DiscountPercent()
	default:
		return a.CurrentPrice().LessThan(b.CurrentPrice())
	}
}
