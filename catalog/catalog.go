// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog holds the book model and the list handling the storefront
// does on top of whole lists returned by the backend: sorting, de-duplication
// of search hits and building filter queries.
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pis-bookshop/storefront/money"
)

// PerPage is the number of books on one catalog page.
const PerPage = 10

// LowStockThreshold is the stock at or below which the exact count is shown.
const LowStockThreshold = 20

type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (a Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Language struct {
	ID       int64  `json:"id"`
	Language string `json:"language"`
}

type Discount struct {
	ID       int64 `json:"id,omitempty"`
	Discount int   `json:"discount"`
}

// Book is a product description as served by the backend.
type Book struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	ISBN              string          `json:"isbn,omitempty"`
	Pages             int             `json:"pages,omitempty"`
	Image             string          `json:"image,omitempty"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"availableQuantity"`
	Author            *Author         `json:"author,omitempty"`
	Categories        []Category      `json:"categories,omitempty"`
	Language          *Language       `json:"language,omitempty"`
	Discount          *Discount       `json:"discount,omitempty"`
}

// HasDiscount reports whether a non-zero discount applies.
func (b *Book) HasDiscount() bool {
	return b.Discount != nil && b.Discount.Discount > 0
}

// DiscountPercent returns the discount or 0.
func (b *Book) DiscountPercent() int {
	if b.Discount == nil {
		return 0
	}
	return b.Discount.Discount
}

// CurrentPrice is the price after discount. Out of range discounts are ignored.
func (b *Book) CurrentPrice() decimal.Decimal {
	p, err := money.Discounted(b.Price, b.DiscountPercent())
	if err != nil {
		return b.Price
	}
	return p
}

// Availability describes stock for display: empty when there is plenty.
func Availability(q int) string {
	switch {
	case q > LowStockThreshold:
		return ""
	case q <= 0:
		return "sold out"
	case q == 1:
		return "1 piece in stock"
	default:
		return fmt.Sprintf("%d pieces in stock", q)
	}
}

// Dedupe drops repeated books keeping the first occurrence. Search can return
// the same book once per matching field.
func Dedupe(books []Book) []Book {
	seen := make(map[int64]bool, len(books))
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}
