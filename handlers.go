// Copyright 2018 Google LLC
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

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pis-bookshop/storefront/cart"
	"github.com/pis-bookshop/storefront/catalog"
	"github.com/pis-bookshop/storefront/checkout"
	"github.com/pis-bookshop/storefront/listing"
	"github.com/pis-bookshop/storefront/money"
	"github.com/pis-bookshop/storefront/orders"
	"github.com/pis-bookshop/storefront/validator"
)

const maxBodyBytes = 1 << 20

func (fe *frontendServer) booksHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusUnprocessableEntity)
		return
	}
	log.WithField("mode", q.Mode()).Debug("listing books")

	books, err := fe.backend.queryBooks(r.Context(), q)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve books"), statusFor(err))
		return
	}
	books = catalog.Sort(books, catalog.ParseSortMode(r.URL.Query().Get("sort")))
	page := listing.Paginate(books, pageParam(r), catalog.PerPage)

	inCart := fe.cartQuantities(r)
	views := make([]bookView, len(page.Items))
	for i := range page.Items {
		views[i] = newBookView(&page.Items[i], inCart[page.Items[i].ID])
	}
	renderJSON(log, w, http.StatusOK, listing.Page[bookView]{
		Items:  views,
		Number: page.Number,
		Pages:  page.Pages,
		Total:  page.Total,
	})
}

func (fe *frontendServer) filterOptionsHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	opts, err := fe.backend.filterOptions(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve filter options"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, opts)
}

func (fe *frontendServer) bookHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	log.WithField("id", id).Debug("serving book detail")

	b, err := fe.backend.getBook(r.Context(), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve book"), statusFor(err))
		return
	}
	view := newBookView(b, fe.cartQuantities(r)[id])

	// the edit history is supplementary, failures only drop it
	if u, ok := fe.currentUser(r); ok && u.Role.IsStaff() {
		history, err := fe.backend.withToken(u.Token).getBookEvidences(r.Context(), id)
		if err != nil {
			log.WithField("error", err).Warn("failed to get book edit history")
		} else {
			view.History = history
		}
	}
	renderJSON(log, w, http.StatusOK, view)
}

func newBookView(b *catalog.Book, inCart int) bookView {
	return bookView{
		Book:         b,
		CurrentPrice: money.Render(b.CurrentPrice()),
		Availability: catalog.Availability(b.AvailableQuantity),
		InCart:       inCart,
	}
}

// cartQuantities is best effort; a cart that cannot be read shows as empty.
func (fe *frontendServer) cartQuantities(r *http.Request) map[int64]int {
	out := make(map[int64]int)
	lines, err := fe.carts.For(sessionID(r)).Lines(r.Context())
	if err != nil {
		requestLog(r).WithField("error", err).Warn("failed to read cart")
		return out
	}
	for _, l := range lines {
		out[l.ProductID] = l.Quantity
	}
	return out
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	log.Debug("view user cart")
	lines, err := fe.carts.For(sessionID(r)).Lines(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), http.StatusInternalServerError)
		return
	}
	view := cartView{Lines: make([]cartLineView, 0, len(lines)), Size: cart.Size(lines)}
	if len(lines) == 0 {
		view.Total = money.Render(decimal.Zero)
		renderJSON(log, w, http.StatusOK, view)
		return
	}

	books, err := fe.backend.getBooks(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve books"), statusFor(err))
		return
	}
	byID := make(map[int64]*catalog.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}

	var prices []decimal.Decimal
	for _, l := range lines {
		lv := cartLineView{ProductID: l.ProductID, Quantity: l.Quantity}
		if b, ok := byID[l.ProductID]; ok {
			unit := b.CurrentPrice()
			total, err := money.Line(unit, l.Quantity)
			if err != nil {
				renderHTTPError(log, r, w, errors.Wrapf(err, "could not price book #%d", l.ProductID), http.StatusInternalServerError)
				return
			}
			lv.Book = b
			lv.UnitPrice = money.Render(unit)
			lv.LinePrice = money.Render(total)
			prices = append(prices, total)
		} else {
			log.WithField("product", l.ProductID).Warn("cart holds a book the catalog no longer lists")
		}
		view.Lines = append(view.Lines, lv)
	}
	view.Total = money.Render(money.Sum(prices...))
	renderJSON(log, w, http.StatusOK, view)
}

func (fe *frontendServer) addOneHandler(w http.ResponseWriter, r *http.Request) {
	fe.changeCart(w, r, "adding one to cart", func(ctx context.Context, c *cart.Controller, id int64) error {
		return c.AddOne(ctx, id)
	})
}

func (fe *frontendServer) removeOneHandler(w http.ResponseWriter, r *http.Request) {
	fe.changeCart(w, r, "removing one from cart", func(ctx context.Context, c *cart.Controller, id int64) error {
		return c.RemoveOne(ctx, id)
	})
}

func (fe *frontendServer) removeFromCartHandler(w http.ResponseWriter, r *http.Request) {
	fe.changeCart(w, r, "removing from cart", func(ctx context.Context, c *cart.Controller, id int64) error {
		return c.Remove(ctx, id)
	})
}

func (fe *frontendServer) setQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Quantity == nil {
		renderHTTPError(requestLog(r), r, w, errors.New("quantity not specified"), http.StatusBadRequest)
		return
	}
	fe.changeCart(w, r, "setting cart quantity", func(ctx context.Context, c *cart.Controller, id int64) error {
		payload := validator.SetQuantityPayload{ProductID: id, Quantity: *body.Quantity}
		if err := payload.Validate(); err != nil {
			return errors.Wrap(cart.ErrInvalidQuantity, validator.ValidationErrorResponse(err).Error())
		}
		return c.SetQuantity(ctx, id, payload.Quantity)
	})
}

func (fe *frontendServer) changeCart(w http.ResponseWriter, r *http.Request, what string,
	fn func(ctx context.Context, c *cart.Controller, id int64) error) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	log.WithField("product", id).Debug(what)

	c := fe.carts.For(sessionID(r))
	if err := fn(r.Context(), c, id); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to update cart"), statusFor(err))
		return
	}
	q, err := c.Quantity(r.Context(), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), http.StatusInternalServerError)
		return
	}
	lines, err := c.Lines(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), http.StatusInternalServerError)
		return
	}
	renderJSON(log, w, http.StatusOK, cartChange{ProductID: id, Quantity: q, Size: cart.Size(lines)})
}

func (fe *frontendServer) emptyCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	log.Debug("emptying cart")
	if err := fe.carts.For(sessionID(r)).Clear(r.Context()); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to empty cart"), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionOrderCreator submits orders with whatever token the session holds
// at submission time.
type sessionOrderCreator struct {
	fe  *frontendServer
	sid string
}

func (s sessionOrderCreator) CreateOrder(ctx context.Context, draft checkout.OrderDraft) (int64, error) {
	b := s.fe.backend
	if u, err := s.fe.sessions.User(ctx, s.sid); err == nil {
		b = b.withToken(u.Token)
	}
	return b.CreateOrder(ctx, draft)
}

func (fe *frontendServer) beginCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	sid := sessionID(r)
	c := fe.carts.For(sid)
	lines, err := c.Lines(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), http.StatusInternalServerError)
		return
	}

	var prefill checkout.Contact
	if u, ok := fe.currentUser(r); ok {
		prefill.Email = u.Email
		if p, err := fe.backend.withToken(u.Token).authGetProfile(r.Context()); err != nil {
			log.WithField("error", err).Debug("could not prefill contact from profile")
		} else {
			prefill = p.Contact()
		}
	}

	flow, err := checkout.Begin(lines, prefill, sessionOrderCreator{fe: fe, sid: sid}, c)
	if err != nil {
		renderHTTPError(log, r, w, err, statusFor(err))
		return
	}
	fe.checkouts.Put(sid, flow)
	log.WithField("products", cart.IDs(lines)).Info("checkout started")
	renderJSON(log, w, http.StatusCreated, flow.State())
}

func (fe *frontendServer) checkoutStateHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	sid := sessionID(r)
	flow, ok := fe.checkouts.Get(sid)
	if !ok {
		renderHTTPError(log, r, w, errors.New("no checkout in progress"), http.StatusNotFound)
		return
	}
	state := flow.State()
	if state.Step == checkout.StepConfirmed {
		fe.checkouts.Drop(sid)
	}
	renderJSON(log, w, http.StatusOK, state)
}

func (fe *frontendServer) checkoutContactHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	flow, ok := fe.checkouts.Get(sessionID(r))
	if !ok {
		renderHTTPError(log, r, w, errors.New("no checkout in progress"), http.StatusNotFound)
		return
	}
	var contact checkout.Contact
	if err := decodeJSON(r, &contact); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := flow.SubmitContact(contact); err != nil {
		renderHTTPError(log, r, w, err, statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, flow.State())
}

func (fe *frontendServer) checkoutAddressHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	sid := sessionID(r)
	flow, ok := fe.checkouts.Get(sid)
	if !ok {
		renderHTTPError(log, r, w, errors.New("no checkout in progress"), http.StatusNotFound)
		return
	}
	var body struct {
		UserAddress     orders.Address `json:"userAddress"`
		DeliveryAddress orders.Address `json:"deliveryAddress"`
	}
	if err := decodeJSON(r, &body); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	err := flow.SubmitAddress(r.Context(), body.UserAddress, body.DeliveryAddress)
	switch {
	case errors.Is(err, checkout.ErrCartNotCleared):
		log.WithField("error", err).Warn("order created but cart not cleared")
	case err != nil:
		// the visitor sees the backend's text and may retry from here
		log.WithField("error", err).Warn("order submission failed")
		renderJSON(log, w, statusFor(err), struct {
			Error string         `json:"error"`
			State checkout.State `json:"state"`
		}{err.Error(), flow.State()})
		return
	}
	log.WithField("order", flow.OrderID()).Info("order placed")
	renderJSON(log, w, http.StatusOK, flow.State())
}

func (fe *frontendServer) orderHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	u, _ := fe.currentUser(r)
	view, err := orders.Load(r.Context(), fe.backendFor(r), id, u.Role)
	if errors.Is(err, orders.ErrNotFound) {
		renderHTTPError(log, r, w, errors.New("Order with given id does not exist"), http.StatusNotFound)
		return
	}
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve order"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, view)
}

func (fe *frontendServer) changeOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.ChangeStatusPayload{OrderID: id, Status: strings.ToUpper(strings.TrimSpace(body.Status))}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	u, _ := fe.currentUser(r)
	log.WithField("order", id).WithField("status", payload.Status).Info("changing order status")

	view, err := orders.ChangeStatus(r.Context(), fe.backendFor(r), id, orders.Status(payload.Status), u.Role)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "Error"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, view)
}

func (fe *frontendServer) myOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ps, err := fe.backendFor(r).getMyOrders(r.Context())
	fe.renderPreviews(w, r, ps, err)
}

func (fe *frontendServer) allOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ps, err := fe.backendFor(r).getAllOrders(r.Context())
	fe.renderPreviews(w, r, ps, err)
}

func (fe *frontendServer) ordersByEmailHandler(w http.ResponseWriter, r *http.Request) {
	ps, err := fe.backendFor(r).getOrdersByEmail(r.Context(), mux.Vars(r)["email"])
	fe.renderPreviews(w, r, ps, err)
}

// renderPreviews filters, sorts and paginates an order table.
func (fe *frontendServer) renderPreviews(w http.ResponseWriter, r *http.Request, ps []orders.Preview, err error) {
	log := requestLog(r)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve orders"), statusFor(err))
		return
	}
	f, err := orders.ParseFilter(r.URL.Query())
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusUnprocessableEntity)
		return
	}
	ps = orders.SortByCreation(orders.FilterPreviews(ps, f), orders.ParseOldest(r.URL.Query()))
	page := listing.Paginate(ps, pageParam(r), orders.PerPage)

	views := make([]previewView, len(page.Items))
	for i, p := range page.Items {
		views[i] = previewView{
			Preview: p,
			Number:  orders.Number(p.ID),
			Label:   p.Status.Label(),
			Total:   money.Render(p.TotalPrice),
		}
	}
	renderJSON(log, w, http.StatusOK, listing.Page[previewView]{
		Items:  views,
		Number: page.Number,
		Pages:  page.Pages,
		Total:  page.Total,
	})
}

// statusFor maps an error to the HTTP status it is answered with. Backend
// client errors are relayed, backend failures become 502.
func statusFor(err error) int {
	var (
		ae *apiError
		ue *url.Error
	)
	switch {
	case errors.Is(err, cart.ErrExceedsStock),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrInvalidEmail),
		errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, catalog.ErrPriceRange),
		errors.Is(err, orders.ErrUnknownStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &ae):
		if ae.StatusCode >= 400 && ae.StatusCode < 500 {
			return ae.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &ue), errors.Is(err, orders.ErrUpdateFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	if code >= http.StatusInternalServerError {
		log.WithField("error", err).Error("request error")
	} else {
		log.WithField("error", err).Warn("request error")
	}
	renderJSON(log, w, code, map[string]interface{}{
		"error":       err.Error(),
		"status_code": code,
		"status":      http.StatusText(code),
		"request_id":  r.Context().Value(ctxKeyRequestID{}),
	})
}

func renderJSON(log logrus.FieldLogger, w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("error", err).Error("could not write response")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
