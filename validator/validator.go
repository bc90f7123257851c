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

package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout and DateTimeLayout are the accepted statistics bounds. The
// backend only takes DateTimeLayout.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// MinPasswordLength is the shortest password the shop accepts.
const MinPasswordLength = 3

var (
	validate *validator.Validate

	// local@domain.tld with no whitespace anywhere
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("shopemail", func(fl validator.FieldLevel) bool {
		return IsEmailValid(fl.Field().String())
	})
	validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, _, err := parseBound(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("shoppassword", func(fl validator.FieldLevel) bool {
		return IsPasswordValid(fl.Field().String())
	})
}

// parseBound reads a date or a date with time. dateOnly reports which.
func parseBound(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(DateTimeLayout, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(DateLayout, s)
	return t, true, err
}

// IsEmailValid checks only the shape local@domain.tld.
func IsEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

// IsPasswordValid checks the password is long enough. It does not check it is correct.
func IsPasswordValid(password string) bool {
	return len(password) >= MinPasswordLength
}

type LoginPayload struct {
	Email    string `validate:"required,shopemail"`
	Password string `validate:"required,shoppassword"`
}

type RegisterPayload struct {
	Firstname string `validate:"required"`
	Surname   string `validate:"required"`
	Phone     string `validate:"omitempty,max=32"`
	Email     string `validate:"required,shopemail"`
	Password  string `validate:"required,shoppassword"`
}

type ChangePasswordPayload struct {
	Password string `validate:"required,shoppassword"`
}

type ContactPayload struct {
	Firstname string
	Surname   string
	Email     string `validate:"required,shopemail"`
	Phone     string `validate:"max=32"`
}

type AddressPayload struct {
	State        string
	Town         string `validate:"required"`
	Street       string `validate:"required"`
	StreetNumber string `validate:"required"`
	PostCode     string `validate:"required"`
}

type SetQuantityPayload struct {
	ProductID int64 `validate:"required,gt=0"`
	Quantity  int   `validate:"gte=0"`
}

type ChangeStatusPayload struct {
	OrderID int64  `validate:"required,gt=0"`
	Status  string `validate:"required,oneof=IN_PROGRESS CONFIRMED PACKED SHIPPED DELIVERED CANCELED RETURNED"`
}

type StatisticsPayload struct {
	Kind     string `validate:"required,oneof=allSalesInTime mostSoldCategories mostSoldItems incomePerTime"`
	FromDate string `validate:"required,isodate"`
	ToDate   string `validate:"required,isodate"`
}

type SetRolePayload struct {
	Email string `validate:"required,shopemail"`
	Role  string `validate:"required,oneof=user employee admin"`
}

type StockPayload struct {
	ProductID int64 `validate:"required,gt=0"`
	Amount    int   `validate:"gte=0"`
}

type DiscountPayload struct {
	ProductID int64 `validate:"required,gt=0"`
	Discount  int   `validate:"gte=0,lte=100"`
}

func (p *LoginPayload) Validate() error          { return validate.Struct(p) }
func (p *RegisterPayload) Validate() error       { return validate.Struct(p) }
func (p *ChangePasswordPayload) Validate() error { return validate.Struct(p) }
func (p *ContactPayload) Validate() error        { return validate.Struct(p) }
func (p *AddressPayload) Validate() error        { return validate.Struct(p) }
func (p *SetQuantityPayload) Validate() error    { return validate.Struct(p) }
func (p *ChangeStatusPayload) Validate() error   { return validate.Struct(p) }
func (p *SetRolePayload) Validate() error        { return validate.Struct(p) }
func (p *StockPayload) Validate() error          { return validate.Struct(p) }
func (p *DiscountPayload) Validate() error       { return validate.Struct(p) }

// Validate also checks that the range is not reversed.
func (p *StatisticsPayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	from, to := p.bounds()
	if from.After(to) {
		return errors.New("from date must not be after to date")
	}
	return nil
}

// Range returns the bounds in DateTimeLayout. A bare from date starts at
// midnight and a bare to date ends at 23:59:59, so both days are included.
func (p *StatisticsPayload) Range() (from, to string) {
	f, t := p.bounds()
	return f.Format(DateTimeLayout), t.Format(DateTimeLayout)
}

func (p *StatisticsPayload) bounds() (from, to time.Time) {
	from, _, _ = parseBound(p.FromDate)
	to, dateOnly, _ := parseBound(p.ToDate)
	if dateOnly {
		to = to.Add(24*time.Hour - time.Second)
	}
	return from, to
}

// ValidationErrorResponse turns validator errors into one readable error.
func ValidationErrorResponse(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	var msg strings.Builder
	for _, e := range validationErrs {
		fmt.Fprintf(&msg, "Field '%s' is invalid: %s\n", e.Field(), e.Tag())
	}
	return errors.New(strings.TrimSpace(msg.String()))
}
