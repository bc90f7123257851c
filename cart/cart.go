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

// Package cart keeps the visitor's intended purchase: a mapping from product
// id to quantity, persisted in a storage.Store under the "cart" key.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pis-bookshop/storefront/storage"
)

// StorageKey is the key the cart is persisted under.
const StorageKey = "cart"

var (
	ErrInvalidQuantity = errors.New("cart: quantity must not be negative")
	ErrExceedsStock    = errors.New("cart: not enough items in stock")
)

// StockFunc reports the last known available quantity of a product.
type StockFunc func(ctx context.Context, productID int64) (int, error)

// Line is one entry of the cart.
type Line struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Controller is the single source of truth for the quantities in one
// visitor's cart. Entries never hold a quantity <= 0.
type Controller struct {
	store storage.Store
	stock StockFunc

	mu     sync.Mutex
	items  map[int64]int
	loaded bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithStock makes AddOne and SetQuantity refuse quantities above what stock
// reports as available.
func WithStock(stock StockFunc) Option {
	return func(c *Controller) { c.stock = stock }
}

// New returns a controller persisting into store.
func New(store storage.Store, opts ...Option) *Controller {
	c := &Controller{store: store}
	for _, o := range opts {
		o(c)
	}
	return c
}

// load reconstitutes the mapping from storage the first time it is needed.
// Must be called with c.mu held.
func (c *Controller) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	items, err := Load(ctx, c.store)
	if err != nil {
		return err
	}
	c.items = items
	c.loaded = true
	return nil
}

// Load reads a persisted cart. A missing or unreadable value yields an empty cart.
func Load(ctx context.Context, store storage.Store) (map[int64]int, error) {
	raw, err := store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return map[int64]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	items, err := decode(raw)
	if err != nil {
		return map[int64]int{}, nil
	}
	return items, nil
}

// decode parses the [[productId, quantity], ...] representation.
func decode(raw []byte) (map[int64]int, error) {
	var pairs [][2]int64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	items := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		if p[1] > 0 {
			items[p[0]] = int(p[1])
		}
	}
	return items, nil
}

func encode(items map[int64]int) ([]byte, error) {
	pairs := make([][2]int64, 0, len(items))
	for id, q := range items {
		pairs = append(pairs, [2]int64{id, int64(q)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return json.Marshal(pairs)
}

// mutate applies fn to a copy of the committed mapping, persists the result
// and only then commits it in memory.
func (c *Controller) mutate(ctx context.Context, fn func(next map[int64]int) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return err
	}
	next := make(map[int64]int, len(c.items)+1)
	for id, q := range c.items {
		next[id] = q
	}
	if err := fn(next); err != nil {
		return err
	}
	raw, err := encode(next)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	c.items = next
	return nil
}

func (c *Controller) checkStock(ctx context.Context, productID int64, want int) error {
	if c.stock == nil {
		return nil
	}
	available, err := c.stock(ctx, productID)
	if err != nil {
		return fmt.Errorf("stock of product %d: %w", productID, err)
	}
	if want > available {
		return ErrExceedsStock
	}
	return nil
}

// AddOne increments the quantity of productID, creating the entry at 1.
func (c *Controller) AddOne(ctx context.Context, productID int64) error {
	return c.mutate(ctx, func(next map[int64]int) error {
		want := next[productID] + 1
		if err := c.checkStock(ctx, productID, want); err != nil {
			return err
		}
		next[productID] = want
		return nil
	})
}

// RemoveOne decrements the quantity of productID and deletes the entry when
// it reaches zero. Absent products are left alone.
func (c *Controller) RemoveOne(ctx context.Context, productID int64) error {
	return c.mutate(ctx, func(next map[int64]int) error {
		q, ok := next[productID]
		if !ok {
			return nil
		}
		if q <= 1 {
			delete(next, productID)
		} else {
			next[productID] = q - 1
		}
		return nil
	})
}

// SetQuantity sets the quantity of productID; zero removes the entry.
func (c *Controller) SetQuantity(ctx context.Context, productID int64, amount int) error {
	if amount < 0 {
		return ErrInvalidQuantity
	}
	return c.mutate(ctx, func(next map[int64]int) error {
		if amount == 0 {
			delete(next, productID)
			return nil
		}
		if err := c.checkStock(ctx, productID, amount); err != nil {
			return err
		}
		next[productID] = amount
		return nil
	})
}

// Remove deletes the entry for productID.
func (c *Controller) Remove(ctx context.Context, productID int64) error {
	return c.mutate(ctx, func(next map[int64]int) error {
		delete(next, productID)
		return nil
	})
}

// Clear empties the cart and drops the persisted value.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	c.items = map[int64]int{}
	c.loaded = true
	return nil
}

// Quantity returns the quantity of productID, 0 when absent.
func (c *Controller) Quantity(ctx context.Context, productID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return 0, err
	}
	return c.items[productID], nil
}

// Lines returns a copy of the cart ordered by product id.
func (c *Controller) Lines(ctx context.Context) ([]Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(c.items))
	for id, q := range c.items {
		lines = append(lines, Line{ProductID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

// Size returns the total number of units in the cart.
func Size(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// IDs returns the product ids of lines.
func IDs(lines []Line) []int64 {
	out := make([]int64, len(lines))
	for i, l := range lines {
		out[i] = l.ProductID
	}
	return out
}
