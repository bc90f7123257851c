package main

// types.go defines the backend payloads the storefront passes through and the
// views it renders for the single page app.

import (
	"encoding/json"

	"github.com/pis-bookshop/storefront/catalog"
	"github.com/pis-bookshop/storefront/checkout"
	"github.com/pis-bookshop/storefront/orders"
	"github.com/pis-bookshop/storefront/session"
)

// UserProfile is the logged in user's profile as the backend returns it.
type UserProfile struct {
	ID        int64           `json:"id"`
	Firstname string          `json:"firstname"`
	Surname   string          `json:"surname"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	Role      string          `json:"role,omitempty"`
	Address   *orders.Address `json:"address,omitempty"`
}

// Contact returns the profile as checkout contact details.
func (p *UserProfile) Contact() checkout.Contact {
	return checkout.Contact{Firstname: p.Firstname, Surname: p.Surname, Email: p.Email, Phone: p.Phone}
}

// UserOverview is a line of the employee and user lists.
type UserOverview struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// RegisterRequest creates a customer account.
type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	Password    string `json:"password"`
	OldPassword string `json:"old_password"`
}

type roleRequest struct {
	Email string `json:"email"`
}

type updateOrderRequest struct {
	Status orders.Status `json:"status"`
	ID     int64         `json:"id"`
}

type statisticsRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

// BookEvidence is one entry of a book's edit history.
type BookEvidence struct {
	UserID            int64            `json:"userId"`
	ModificationDate  orders.Timestamp `json:"modificationDate"`
	ChangeDescription string           `json:"changeDescription"`
	Email             string           `json:"email"`
	Firstname         string           `json:"firstname"`
	Surname           string           `json:"surname"`
	Role              string           `json:"role"`
}

type bookView struct {
	*catalog.Book
	CurrentPrice string         `json:"currentPrice"`
	Availability string         `json:"availability,omitempty"`
	InCart       int            `json:"inCart"`
	History      []BookEvidence `json:"history,omitempty"`
}

type cartLineView struct {
	ProductID int64         `json:"productId"`
	Quantity  int           `json:"quantity"`
	Book      *catalog.Book `json:"book,omitempty"`
	UnitPrice string        `json:"unitPrice,omitempty"`
	LinePrice string        `json:"linePrice,omitempty"`
}

type cartView struct {
	Lines []cartLineView `json:"lines"`
	Size  int            `json:"size"`
	Total string         `json:"total"`
}

type cartChange struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Size      int   `json:"size"`
}

type sessionView struct {
	SessionID string          `json:"sessionId"`
	LoggedIn  bool            `json:"loggedIn"`
	Email     string          `json:"email,omitempty"`
	Role      session.Role    `json:"role,omitempty"`
	Last      *session.Result `json:"last,omitempty"`
}

type previewView struct {
	orders.Preview
	Number string `json:"number"`
	Label  string `json:"label"`
	Total  string `json:"total"`
}

// rawJSON is an opaque backend payload handed through untouched.
type rawJSON = json.RawMessage
