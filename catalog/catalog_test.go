package catalog

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(id int64, price string, discount int) Book {
	b := Book{ID: id, Price: decimal.RequireFromString(price)}
	if discount > 0 {
		b.Discount = &Discount{Discount: discount}
	}
	return b
}

func ids(books []Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestCurrentPrice(t *testing.T) {
	b := book(1, "20", 25)
	assert.Equal(t, "15.00", b.CurrentPrice().StringFixed(2))

	b = book(2, "20", 0)
	assert.Equal(t, "20.00", b.CurrentPrice().StringFixed(2))

	b.Discount = &Discount{Discount: 150}
	assert.Equal(t, "20.00", b.CurrentPrice().StringFixed(2), "bogus discount ignored")
}

func TestBookDecodesBackendJSON(t *testing.T) {
	raw := `{"id":4,"name":"Dune","price":12.5,"availableQuantity":3,
		"author":{"id":2,"firstName":"Frank","lastName":"Herbert"},
		"categories":[{"id":1,"name":"Sci-fi"}],"language":{"id":1,"language":"English"},
		"discount":{"id":9,"discount":10}}`
	var b Book
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, "Frank Herbert", b.Author.FullName())
	assert.Equal(t, "11.25", b.CurrentPrice().StringFixed(2))
	assert.True(t, b.HasDiscount())
}

func TestSortPrice(t *testing.T) {
	books := []Book{book(1, "10", 0), book(2, "30", 50), book(3, "12", 0)}
	assert.Equal(t, []int64{1, 3, 2}, ids(Sort(books, SortPriceAsc)))
	assert.Equal(t, []int64{2, 3, 1}, ids(Sort(books, SortPriceDesc)))
	assert.Equal(t, []int64{1, 2, 3}, ids(books), "input is not reordered")
}

func TestSortDiscount(t *testing.T) {
	books := []Book{
		book(1, "10", 20),
		book(2, "5", 0),
		book(3, "50", 0),
		book(4, "10", 5),
	}
	// undiscounted first (expensive first), then growing discount
	assert.Equal(t, []int64{3, 2, 4, 1}, ids(Sort(books, SortDiscountAsc)))
	// biggest discount first, then undiscounted cheapest first
	assert.Equal(t, []int64{1, 4, 2, 3}, ids(Sort(books, SortDiscountDesc)))
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, SortDiscountDesc, ParseSortMode("discount_desc"))
	assert.Equal(t, SortPriceAsc, ParseSortMode(""))
	assert.Equal(t, SortPriceAsc, ParseSortMode("random"))
}

func TestDedupe(t *testing.T) {
	in := []Book{book(1, "1", 0), book(2, "1", 0), book(1, "9", 0)}
	out := Dedupe(in)
	assert.Equal(t, []int64{1, 2}, ids(out))
	assert.Equal(t, "1", out[0].Price.String(), "first occurrence kept")
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, "", Availability(21))
	assert.Equal(t, "20 pieces in stock", Availability(20))
	assert.Equal(t, "1 piece in stock", Availability(1))
	assert.Equal(t, "sold out", Availability(0))
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{"query": {"  dune "}, "categoryIds": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, ModeSearch, q.Mode())
	assert.Equal(t, "dune", q.Text)

	q, err = ParseQuery(url.Values{"categoryIds": {"1", "2"}, "languageIds": {"3,4"}, "priceFrom": {"5"}})
	require.NoError(t, err)
	assert.Equal(t, ModeFilter, q.Mode())
	assert.Equal(t, []int64{1, 2}, q.CategoryIDs)
	assert.Equal(t, []int64{3, 4}, q.LanguageIDs)

	raw, err := json.Marshal(q.FilterBody())
	require.NoError(t, err)
	assert.JSONEq(t, `{"categoryIds":[1,2],"languageIds":[3,4],"priceFrom":5}`, string(raw))

	q, err = ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, ModeAll, q.Mode())

	q, err = ParseQuery(url.Values{"priceTo": {"7.5"}})
	require.NoError(t, err)
	assert.Equal(t, ModeFilter, q.Mode())
}

func TestParseQueryErrors(t *testing.T) {
	_, err := ParseQuery(url.Values{"priceFrom": {"10"}, "priceTo": {"5"}})
	assert.ErrorIs(t, err, ErrPriceRange)

	_, err = ParseQuery(url.Values{"authorIds": {"x"}})
	assert.Error(t, err)

	_, err = ParseQuery(url.Values{"priceFrom": {"cheap"}})
	assert.Error(t, err)
}
