package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmailValid(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.c", true},
		{"jan.novak@example.com", true},
		{"a@b", false},
		{"a b@c.d", false},
		{"a@ b.c", false},
		{"a @b.c", false},
		{"@b.c", false},
		{"a@@b.c", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEmailValid(tt.email), tt.email)
	}
}

func TestIsPasswordValid(t *testing.T) {
	assert.False(t, IsPasswordValid("ab"))
	assert.True(t, IsPasswordValid("abc"))
}

func TestLoginPayload(t *testing.T) {
	p := LoginPayload{Email: "a@b.c", Password: "secret"}
	assert.NoError(t, p.Validate())

	p = LoginPayload{Email: "a@b", Password: "secret"}
	err := p.Validate()
	assert.Error(t, err)
	assert.Contains(t, ValidationErrorResponse(err).Error(), "Field 'Email' is invalid: shopemail")

	p = LoginPayload{Email: "a@b.c", Password: "ab"}
	assert.EqualError(t, ValidationErrorResponse(p.Validate()), "Field 'Password' is invalid: shoppassword")
}

func TestChangePasswordPayload(t *testing.T) {
	p := ChangePasswordPayload{Password: "abc"}
	assert.NoError(t, p.Validate())
	p.Password = "ab"
	assert.EqualError(t, ValidationErrorResponse(p.Validate()), "Field 'Password' is invalid: shoppassword")
}

func TestContactPayload(t *testing.T) {
	p := ContactPayload{Firstname: "Jan", Email: "jan@shop.cz"}
	assert.NoError(t, p.Validate(), "names and phone are optional")

	p.Email = "jan@shop"
	assert.Error(t, p.Validate())
}

func TestChangeStatusPayload(t *testing.T) {
	p := ChangeStatusPayload{OrderID: 3, Status: "SHIPPED"}
	assert.NoError(t, p.Validate())
	p.Status = "LOST"
	assert.Error(t, p.Validate())
	p = ChangeStatusPayload{Status: "SHIPPED"}
	assert.Error(t, p.Validate())
}

func TestStatisticsPayload(t *testing.T) {
	p := StatisticsPayload{Kind: "mostSoldItems", FromDate: "2024-01-01", ToDate: "2024-02-01"}
	assert.NoError(t, p.Validate())

	p.FromDate = "2024-03-01"
	assert.EqualError(t, p.Validate(), "from date must not be after to date")

	p = StatisticsPayload{Kind: "everything", FromDate: "2024-01-01", ToDate: "2024-02-01"}
	assert.Error(t, p.Validate())

	p = StatisticsPayload{Kind: "incomePerTime", FromDate: "01/01/2024", ToDate: "2024-02-01"}
	assert.Error(t, p.Validate())

	p = StatisticsPayload{Kind: "incomePerTime", FromDate: "2024-01-01T08:30:00", ToDate: "2024-01-01"}
	assert.NoError(t, p.Validate(), "a bare to date covers the whole day")
}

func TestStatisticsRange(t *testing.T) {
	tests := []struct {
		from, to         string
		wantFrom, wantTo string
	}{
		{"2024-01-01", "2024-02-01", "2024-01-01T00:00:00", "2024-02-01T23:59:59"},
		{"2024-01-01T10:00:00", "2024-01-01T12:30:00", "2024-01-01T10:00:00", "2024-01-01T12:30:00"},
		{"2024-01-01", "2024-01-01", "2024-01-01T00:00:00", "2024-01-01T23:59:59"},
	}
	for _, tt := range tests {
		p := StatisticsPayload{Kind: "allSalesInTime", FromDate: tt.from, ToDate: tt.to}
		assert.NoError(t, p.Validate())
		from, to := p.Range()
		assert.Equal(t, tt.wantFrom, from)
		assert.Equal(t, tt.wantTo, to)
	}
}

func TestDiscountAndStockPayloads(t *testing.T) {
	d := DiscountPayload{ProductID: 1, Discount: 100}
	assert.NoError(t, d.Validate())
	d.Discount = 101
	assert.Error(t, d.Validate())

	s := StockPayload{ProductID: 1, Amount: 0}
	assert.NoError(t, s.Validate())
	s.Amount = -1
	assert.Error(t, s.Validate())
}

func TestValidationErrorResponsePassesOtherErrors(t *testing.T) {
	err := errors.New("plain")
	assert.Same(t, err, ValidationErrorResponse(err))
}

func TestAddressPayload(t *testing.T) {
	a := AddressPayload{Town: "Brno", Street: "Main", StreetNumber: "12", PostCode: "60200"}
	assert.NoError(t, a.Validate(), "state is optional")

	a.Street = ""
	err := ValidationErrorResponse(a.Validate())
	assert.EqualError(t, err, "Field 'Street' is invalid: required")
}
