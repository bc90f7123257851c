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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pis-bookshop/storefront/catalog"
	"github.com/pis-bookshop/storefront/checkout"
	"github.com/pis-bookshop/storefront/orders"
)

// apiError is a non-2xx answer of the backend. Message is the response body,
// which the backend writes for humans.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend: status %d", e.StatusCode)
}

func isStatus(err error, code int) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.StatusCode == code
}

// backendClient calls the REST backend, on behalf of a user when token is set.
type backendClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func newBackendClient(addr string, httpClient *http.Client) *backendClient {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &backendClient{baseURL: base + "/api", httpClient: httpClient}
}

// withToken returns a client sending token as bearer credentials.
func (c *backendClient) withToken(token string) *backendClient {
	cp := *c
	cp.token = token
	return &cp
}

func (c *backendClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "backend unavailable: %s %s", method, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &apiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	switch o := out.(type) {
	case nil:
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	case *string:
		b, err := io.ReadAll(resp.Body)
		*o = string(b)
		return err
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "could not decode %s %s", method, path)
		}
		return nil
	}
}

func (c *backendClient) getBooks(ctx context.Context) ([]catalog.Book, error) {
	var books []catalog.Book
	err := c.do(ctx, http.MethodGet, "/productdescription", nil, &books)
	return books, err
}

func (c *backendClient) getBook(ctx context.Context, id int64) (*catalog.Book, error) {
	var b catalog.Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/productdescription/%d", id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *backendClient) searchBooks(ctx context.Context, query string) ([]catalog.Book, error) {
	var books []catalog.Book
	err := c.do(ctx, http.MethodPost, "/productdescription/search", catalog.SearchBody{Query: query}, &books)
	return books, err
}

func (c *backendClient) filterBooks(ctx context.Context, body catalog.FilterBody) ([]catalog.Book, error) {
	var books []catalog.Book
	err := c.do(ctx, http.MethodPost, "/productdescription/filter", body, &books)
	return books, err
}

// queryBooks runs q as a search, a filter or a full listing.
func (c *backendClient) queryBooks(ctx context.Context, q catalog.Query) ([]catalog.Book, error) {
	switch q.Mode() {
	case catalog.ModeSearch:
		books, err := c.searchBooks(ctx, q.Text)
		return catalog.Dedupe(books), err
	case catalog.ModeFilter:
		return c.filterBooks(ctx, q.FilterBody())
	default:
		return c.getBooks(ctx)
	}
}

// stockOf is the cart's view of available quantities.
func (c *backendClient) stockOf(ctx context.Context, productID int64) (int, error) {
	b, err := c.getBook(ctx, productID)
	if err != nil {
		return 0, errors.Wrapf(err, "could not retrieve stock of book #%d", productID)
	}
	return b.AvailableQuantity, nil
}

func (c *backendClient) getBookEvidences(ctx context.Context, id int64) ([]BookEvidence, error) {
	var ev []BookEvidence
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/productdescription/%d/evidences", id), nil, &ev)
	return ev, err
}

// filterOptions fetches categories, languages and authors concurrently.
func (c *backendClient) filterOptions(ctx context.Context) (*catalog.FilterOptions, error) {
	var opts catalog.FilterOptions
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(c.do(ctx, http.MethodGet, "/category", nil, &opts.Categories), "categories")
	})
	g.Go(func() error {
		return errors.Wrap(c.do(ctx, http.MethodGet, "/language", nil, &opts.Languages), "languages")
	})
	g.Go(func() error {
		return errors.Wrap(c.do(ctx, http.MethodGet, "/bookauthor", nil, &opts.Authors), "authors")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// CreateOrder submits a checkout draft. The backend answers with the new
// order id; its error bodies are meant for the visitor. A 2xx answer means
// the order exists, so a missing or unreadable id is reported as 0.
func (c *backendClient) CreateOrder(ctx context.Context, draft checkout.OrderDraft) (int64, error) {
	var body string
	if err := c.do(ctx, http.MethodPost, "/order/create", draft, &body); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(body), 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// GetOrder maps an unknown id to orders.ErrNotFound.
func (c *backendClient) GetOrder(ctx context.Context, id int64) (*orders.Order, error) {
	var o orders.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/order/%d", id), nil, &o)
	if isStatus(err, http.StatusNotFound) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *backendClient) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) error {
	return c.do(ctx, http.MethodPut, "/order/update", updateOrderRequest{Status: status, ID: id}, nil)
}

func (c *backendClient) getMyOrders(ctx context.Context) ([]orders.Preview, error) {
	var ps []orders.Preview
	err := c.do(ctx, http.MethodGet, "/order", nil, &ps)
	return ps, err
}

func (c *backendClient) getAllOrders(ctx context.Context) ([]orders.Preview, error) {
	var ps []orders.Preview
	err := c.do(ctx, http.MethodGet, "/order/all", nil, &ps)
	return ps, err
}

func (c *backendClient) getOrdersByEmail(ctx context.Context, email string) ([]orders.Preview, error) {
	var ps []orders.Preview
	err := c.do(ctx, http.MethodGet, "/order/byEmail/"+url.PathEscape(email), nil, &ps)
	return ps, err
}
