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
	"errors"
	"strings"
)

// Status of an order. The backend owns transitions; the storefront only
// suggests the next one.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusConfirmed  Status = "CONFIRMED"
	StatusPacked     Status = "PACKED"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCanceled   Status = "CANCELED"
	StatusReturned   Status = "RETURNED"
)

var ErrUnknownStatus = errors.New("orders: unknown order status")

var labels = map[Status]string{
	StatusInProgress: "ordered",
	StatusConfirmed:  "processing",
	StatusPacked:     "ready to ship",
	StatusShipped:    "sent",
	StatusDelivered:  "delivered",
	StatusCanceled:   "canceled",
	StatusReturned:   "returned",
}

// forward chain used for the suggestion
var next = map[Status]Status{
	StatusInProgress: StatusConfirmed,
	StatusConfirmed:  StatusPacked,
	StatusPacked:     StatusShipped,
	StatusShipped:    StatusDelivered,
}

// selectable is always offered to staff, whatever the current status.
var selectable = []Status{StatusConfirmed, StatusPacked, StatusShipped, StatusDelivered, StatusCanceled}

// All lists every status in lifecycle order.
func All() []Status {
	return []Status{StatusInProgress, StatusConfirmed, StatusPacked, StatusShipped,
		StatusDelivered, StatusCanceled, StatusReturned}
}

// ParseStatus accepts the backend spelling, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := labels[st]; !ok {
		return "", ErrUnknownStatus
	}
	return st, nil
}

// Label is the human readable name of s, empty for unknown values.
func (s Status) Label() string {
	return labels[s]
}

func (s Status) String() string {
	return string(s)
}

// ExpectedNext returns the status that normally follows s.
func (s Status) ExpectedNext() (Status, bool) {
	n, ok := next[s]
	return n, ok
}

// Selectable returns the statuses staff may pick. Backward moves are not
// prevented here; only the backend may reject them.
func Selectable() []Status {
	out := make([]Status, len(selectable))
	copy(out, selectable)
	return out
}
