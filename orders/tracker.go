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

package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pis-bookshop/storefront/session"
)

var (
	// ErrNotFound means the backend knows no order with the given id.
	ErrNotFound  = errors.New("order with given id does not exist")
	ErrForbidden = errors.New("orders: only staff may change the order status")
	// ErrUpdateFailed wraps every failed status change.
	ErrUpdateFailed = errors.New("it was not possible to update the status")
)

// Backend is the part of the REST backend the status component uses.
// GetOrder returns ErrNotFound for unknown ids.
type Backend interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
}

// View is an order as the status component renders it for one role.
type View struct {
	Order       *Order     `json:"order"`
	Number      string     `json:"number"`
	Label       string     `json:"label"`
	LastChanged *time.Time `json:"lastChanged,omitempty"`
	CanChange   bool       `json:"canChange"`
	Suggested   *Status    `json:"suggested,omitempty"`
	Options     []Status   `json:"options,omitempty"`
	History     []Change   `json:"history,omitempty"`
}

// Change is one line of the modification history.
type Change struct {
	Date   time.Time `json:"date"`
	Status Status    `json:"status"`
	Label  string    `json:"label"`
	// Author is only filled in for admins.
	Author string `json:"author,omitempty"`
}

// NewView builds the view of o for role.
func NewView(o *Order, role session.Role) *View {
	v := &View{
		Order:  o,
		Number: Number(o.ID),
		Label:  o.Status.Label(),
	}
	if at, ok := o.LastChanged(); ok {
		v.LastChanged = &at
	}
	if !role.IsStaff() {
		return v
	}
	v.CanChange = true
	if n, ok := o.Status.ExpectedNext(); ok {
		v.Suggested = &n
	}
	v.Options = Selectable()
	v.History = HistoryView(o.Modifications, role)
	return v
}

// HistoryView lists modifications for staff; only admins see who made them.
func HistoryView(mods []Modification, role session.Role) []Change {
	if !role.IsStaff() {
		return nil
	}
	out := make([]Change, 0, len(mods))
	for _, m := range mods {
		c := Change{Date: m.ModificationDate.Time, Status: m.ToStatus, Label: m.ToStatus.Label()}
		if role == session.RoleAdmin {
			c.Author = fmt.Sprintf("%s %s (%s)", m.Firstname, m.Surname, m.Email)
		}
		out = append(out, c)
	}
	return out
}

// Load fetches order id and renders it for role.
func Load(ctx context.Context, backend Backend, id int64, role session.Role) (*View, error) {
	o, err := backend.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewView(o, role), nil
}

// ChangeStatus asks the backend to move order id to target and returns the
// order as re-fetched afterwards, so the modification history is the
// backend's. On failure nothing is returned and the caller keeps showing the
// previous status.
func ChangeStatus(ctx context.Context, backend Backend, id int64, target Status, role session.Role) (*View, error) {
	if !role.IsStaff() {
		return nil, ErrForbidden
	}
	if target.Label() == "" {
		return nil, ErrUnknownStatus
	}
	if err := backend.UpdateOrderStatus(ctx, id, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return Load(ctx, backend, id, role)
}
