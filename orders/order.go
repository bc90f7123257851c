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

// Package orders holds the storefront's read copy of orders, the order status
// enumeration and the status component staff use to move orders along.
package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Address is a free-text postal address.
type Address struct {
	State        string `json:"state"`
	Town         string `json:"town"`
	Street       string `json:"street"`
	StreetNumber string `json:"streetNumber"`
	PostCode     string `json:"postCode"`
}

// UserAddress is the billing address as the backend names its fields.
type UserAddress struct {
	UserState        string      `json:"userState"`
	UserTown         string      `json:"userTown"`
	UserStreet       string      `json:"userStreet"`
	UserStreetNumber json.Number `json:"userStreetNumber,omitempty"`
	UserPostCode     string      `json:"userPostCode"`
}

func (u UserAddress) Address() Address {
	return Address{
		State:        u.UserState,
		Town:         u.UserTown,
		Street:       u.UserStreet,
		StreetNumber: u.UserStreetNumber.String(),
		PostCode:     u.UserPostCode,
	}
}

// UserInfo is the contact the order was placed with.
type UserInfo struct {
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Item is a line of a placed order.
type Item struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	FirstName     string          `json:"firstName,omitempty"`
	LastName      string          `json:"lastName,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PricePerPiece decimal.Decimal `json:"pricePerPiece"`
}

// Modification records one status change and who made it.
type Modification struct {
	UserID           int64     `json:"userId"`
	ModificationDate Timestamp `json:"modificationDate"`
	ToStatus         Status    `json:"toStatus"`
	Email            string    `json:"email,omitempty"`
	Firstname        string    `json:"firstname,omitempty"`
	Surname          string    `json:"surname,omitempty"`
}

// Order is the client side copy of a server owned order.
type Order struct {
	ID              int64          `json:"id"`
	CreationDate    Timestamp      `json:"creationDate"`
	Status          Status         `json:"status"`
	OrderItems      []Item         `json:"orderItems"`
	UserAddress     UserAddress    `json:"userAddress"`
	DeliveryAddress Address        `json:"deliveryAddress"`
	OrderUserInfo   UserInfo       `json:"orderUserInfo"`
	Modifications   []Modification `json:"modifications"`
}

// LastChanged returns the time of the most recent status change. The backend
// lists modifications newest first.
func (o *Order) LastChanged() (time.Time, bool) {
	if len(o.Modifications) == 0 {
		return time.Time{}, false
	}
	return o.Modifications[0].ModificationDate.Time, true
}

// Number is the zero padded order number shown to visitors.
func Number(id int64) string {
	return fmt.Sprintf("%06d", id)
}

// Preview is an order as listed in order tables.
type Preview struct {
	ID           int64           `json:"id"`
	Status       Status          `json:"status"`
	CreationDate Timestamp       `json:"creationDate"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Email        string          `json:"email,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes the backend's local date-times, with or without zone.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// epoch milliseconds
		var ms int64
		if err2 := json.Unmarshal(b, &ms); err2 != nil {
			return fmt.Errorf("orders: invalid timestamp %s", b)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("orders: invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
