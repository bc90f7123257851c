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

// Package checkout turns cart contents and visitor supplied details into a
// submitted order: contact info, then addresses, then confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pis-bookshop/storefront/cart"
	"github.com/pis-bookshop/storefront/orders"
	"github.com/pis-bookshop/storefront/validator"
)

// Step of the checkout. Steps only move forward.
type Step int

const (
	StepContactInfo Step = iota
	StepAddressInfo
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepContactInfo:
		return "contact"
	case StepAddressInfo:
		return "address"
	case StepConfirmed:
		return "confirmed"
	}
	return "unknown"
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrEmptyCart      = errors.New("checkout: the cart is empty")
	ErrInvalidEmail   = errors.New("checkout: invalid email")
	ErrInvalidAddress = errors.New("checkout: incomplete address")
	ErrWrongStep      = errors.New("checkout: operation not allowed at this step")
	// ErrCartNotCleared is returned when the order was created but the cart
	// could not be emptied afterwards. The flow is confirmed anyway.
	ErrCartNotCleared = errors.New("checkout: order created but the cart was not cleared")
)

// Item is one ordered product, as sent to the backend.
type Item struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Contact is who places the order.
type Contact = orders.UserInfo

// OrderDraft is built across the steps and submitted once.
type OrderDraft struct {
	Items           []Item         `json:"items"`
	UserAddress     orders.Address `json:"userAddress"`
	DeliveryAddress orders.Address `json:"deliveryAddress"`
	OrderUserInfo   Contact        `json:"orderUserInfo"`
}

// OrderCreator submits a draft and returns the id of the new order. Errors
// should carry the backend's message, it is shown to the visitor as is.
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (int64, error)
}

// Clearer empties the cart once the order exists.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Flow is one visitor's checkout in progress.
type Flow struct {
	creator OrderCreator
	cart    Clearer

	mu      sync.Mutex
	step    Step
	draft   OrderDraft
	lastErr string
	orderID int64
}

// Begin snapshots lines and starts at the contact step with the fields of
// prefill filled in. Later cart changes do not affect the flow.
func Begin(lines []cart.Line, prefill Contact, creator OrderCreator, c Clearer) (*Flow, error) {
	if cart.Size(lines) == 0 {
		return nil, ErrEmptyCart
	}
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		items = append(items, Item{ID: l.ProductID, Amount: l.Quantity})
	}
	return &Flow{
		creator: creator,
		cart:    c,
		step:    StepContactInfo,
		draft:   OrderDraft{Items: items, OrderUserInfo: prefill},
	}, nil
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns a copy of the draft so far.
func (f *Flow) Draft() OrderDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.Items = append([]Item(nil), f.draft.Items...)
	return d
}

// LastError is the message of the last failed submission, empty if none.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// OrderID is the id of the created order, zero before confirmation.
func (f *Flow) OrderID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderID
}

// SubmitContact records the contact and moves to the address step. An
// invalid email keeps the flow where it is.
func (f *Flow) SubmitContact(c Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepContactInfo {
		return ErrWrongStep
	}
	if !validator.IsEmailValid(c.Email) {
		return ErrInvalidEmail
	}
	f.draft.OrderUserInfo = c
	f.step = StepAddressInfo
	return nil
}

// SubmitAddress records both addresses and submits the order. On success the
// cart is cleared and the flow is confirmed; on failure the backend's message
// is kept in LastError and the visitor may retry from this step.
func (f *Flow) SubmitAddress(ctx context.Context, billing, delivery orders.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepAddressInfo {
		return ErrWrongStep
	}
	for _, a := range []orders.Address{billing, delivery} {
		p := validator.AddressPayload(a)
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, validator.ValidationErrorResponse(err))
		}
	}
	f.draft.UserAddress = billing
	f.draft.DeliveryAddress = delivery

	id, err := f.creator.CreateOrder(ctx, f.draft)
	if err != nil {
		f.lastErr = err.Error()
		return err
	}
	f.lastErr = ""
	f.orderID = id
	f.step = StepConfirmed
	if err := f.cart.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCartNotCleared, err)
	}
	return nil
}

// State is a read-only picture of a flow.
type State struct {
	Step    Step       `json:"step"`
	Draft   OrderDraft `json:"draft"`
	Error   string     `json:"error,omitempty"`
	OrderID int64      `json:"orderId,omitempty"`
}

// State returns a consistent picture of f.
func (f *Flow) State() State {
	d := f.Draft()
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{Step: f.step, Draft: d, Error: f.lastErr, OrderID: f.orderID}
}
