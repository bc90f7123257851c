package catalog

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrPriceRange = errors.New("catalog: price from must be lesser than price to")

// Mode says which backend query a Query maps to.
type Mode int

const (
	ModeAll Mode = iota
	ModeSearch
	ModeFilter
)

// Query is what the visitor asked the catalog for: a full-text search or a
// filter, never both; search wins.
type Query struct {
	Text        string
	CategoryIDs []int64
	AuthorIDs   []int64
	LanguageIDs []int64
	PriceFrom   *decimal.Decimal
	PriceTo     *decimal.Decimal
}

// ParseQuery reads a Query from URL parameters. Unparsable ids and prices are
// reported as errors.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Text: strings.TrimSpace(v.Get("query"))}
	var err error
	if q.CategoryIDs, err = parseIDs(v["categoryIds"]); err != nil {
		return q, err
	}
	if q.AuthorIDs, err = parseIDs(v["authorIds"]); err != nil {
		return q, err
	}
	if q.LanguageIDs, err = parseIDs(v["languageIds"]); err != nil {
		return q, err
	}
	if q.PriceFrom, err = parsePrice(v.Get("priceFrom")); err != nil {
		return q, err
	}
	if q.PriceTo, err = parsePrice(v.Get("priceTo")); err != nil {
		return q, err
	}
	return q, q.Validate()
}

func parseIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, errors.New("catalog: invalid id " + strconv.Quote(part))
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New("catalog: invalid price " + strconv.Quote(raw))
	}
	return &d, nil
}

// Validate rejects a reversed price range.
func (q Query) Validate() error {
	if q.PriceFrom != nil && q.PriceTo != nil && q.PriceFrom.GreaterThan(*q.PriceTo) {
		return ErrPriceRange
	}
	return nil
}

func (q Query) Mode() Mode {
	switch {
	case q.Text != "":
		return ModeSearch
	case len(q.CategoryIDs) > 0 || len(q.AuthorIDs) > 0 || len(q.LanguageIDs) > 0 ||
		q.PriceFrom != nil || q.PriceTo != nil:
		return ModeFilter
	default:
		return ModeAll
	}
}

// SearchBody is the body of POST /productdescription/search.
type SearchBody struct {
	Query string `json:"query"`
}

// FilterBody is the body of POST /productdescription/filter; unset criteria
// are left out.
type FilterBody struct {
	CategoryIDs []int64  `json:"categoryIds,omitempty"`
	AuthorIDs   []int64  `json:"authorIds,omitempty"`
	LanguageIDs []int64  `json:"languageIds,omitempty"`
	PriceFrom   *float64 `json:"priceFrom,omitempty"`
	PriceTo     *float64 `json:"priceTo,omitempty"`
}

func (q Query) FilterBody() FilterBody {
	b := FilterBody{
		CategoryIDs: q.CategoryIDs,
		AuthorIDs:   q.AuthorIDs,
		LanguageIDs: q.LanguageIDs,
	}
	if q.PriceFrom != nil {
		f := q.PriceFrom.InexactFloat64()
		b.PriceFrom = &f
	}
	if q.PriceTo != nil {
		f := q.PriceTo.InexactFloat64()
		b.PriceTo = &f
	}
	return b
}

// FilterOptions are the choices offered by the catalog filter.
type FilterOptions struct {
	Categories []Category `json:"categories"`
	Languages  []Language `json:"languages"`
	Authors    []Author   `json:"authors"`
}
