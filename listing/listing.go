// Package listing pages through lists fetched wholesale from the backend.
package listing

// Page is one page of a list. Number is 1-based.
type Page[T any] struct {
	Items  []T `json:"items"`
	Number int `json:"page"`
	Pages  int `json:"pages"`
	Total  int `json:"total"`
}

// Paginate returns page number (1-based) of items with perPage entries per
// page. Out of range page numbers are clamped.
func Paginate[T any](items []T, number, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = 1
	}
	pages := (len(items) + perPage - 1) / perPage
	if number < 1 {
		number = 1
	}
	if pages > 0 && number > pages {
		number = pages
	}
	start := (number - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, Number: number, Pages: pages, Total: len(items)}
}
