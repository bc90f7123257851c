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

// Package money does the shop's price arithmetic on exact decimals.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the shop sells in.
const Currency = "$"

var (
	ErrInvalidDiscount = errors.New("money: discount must be within 0..100")
	ErrNegativeAmount  = errors.New("money: amount must not be negative")

	hundred = decimal.NewFromInt(100)
)

// Discounted applies a percentage discount: price * (100 - pct) / 100.
func Discounted(price decimal.Decimal, pct int) (decimal.Decimal, error) {
	if pct < 0 || pct > 100 {
		return decimal.Zero, ErrInvalidDiscount
	}
	if pct == 0 {
		return price, nil
	}
	return price.Mul(hundred.Sub(decimal.NewFromInt(int64(pct)))).Div(hundred), nil
}

// MustDiscounted is Discounted for callers that already checked pct.
func MustDiscounted(price decimal.Decimal, pct int) decimal.Decimal {
	d, err := Discounted(price, pct)
	if err != nil {
		panic(err)
	}
	return d
}

// Line returns unit * amount.
func Line(unit decimal.Decimal, amount int) (decimal.Decimal, error) {
	if amount < 0 {
		return decimal.Zero, ErrNegativeAmount
	}
	return unit.Mul(decimal.NewFromInt(int64(amount))), nil
}

// Sum adds up prices.
func Sum(prices ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p)
	}
	return total
}

// Render formats a price the way the shop shows it, e.g. "12.50 $".
func Render(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + Currency
}
