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

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// forward sends body untouched and returns the backend's answer untouched.
// An empty answer comes back as nil.
func (c *backendClient) forward(ctx context.Context, method, path string, body rawJSON) (rawJSON, error) {
	var in interface{}
	if len(body) > 0 {
		in = body
	}
	var out string
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	return rawJSON(out), nil
}

func (c *backendClient) setStock(ctx context.Context, id int64, amount int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/productdescription/%d/%d", id, amount), nil, nil)
}

func (c *backendClient) setDiscount(ctx context.Context, id int64, discount int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/productdescription/%d/discount/%d", id, discount), nil, nil)
}

func (c *backendClient) setRole(ctx context.Context, email, role string) error {
	return c.do(ctx, http.MethodPost, "/setRole/"+url.PathEscape(role), roleRequest{Email: email}, nil)
}

// getEmployees lists employees. A query containing "@" searches by email,
// any other non-empty query by name.
func (c *backendClient) getEmployees(ctx context.Context, query string) ([]UserOverview, error) {
	path := "/users/getEmployees"
	switch {
	case strings.Contains(query, "@"):
		path = "/users/getEmployeesByEmail/" + url.PathEscape(query)
	case query != "":
		path = "/users/getEmployeesByName/" + url.PathEscape(query)
	}
	var users []UserOverview
	err := c.do(ctx, http.MethodGet, path, nil, &users)
	return users, err
}

// getUsers searches customers; an empty query finds nobody.
func (c *backendClient) getUsers(ctx context.Context, query string) ([]UserOverview, error) {
	if query == "" {
		return []UserOverview{}, nil
	}
	path := "/users/getUsersByName/" + url.PathEscape(query)
	if strings.Contains(query, "@") {
		path = "/users/getUsersByEmail/" + url.PathEscape(query)
	}
	var users []UserOverview
	err := c.do(ctx, http.MethodGet, path, nil, &users)
	return users, err
}

func (c *backendClient) statistics(ctx context.Context, kind, from, to string) (rawJSON, error) {
	var out rawJSON
	err := c.do(ctx, http.MethodPost, "/statistics/"+kind, statisticsRequest{FromDate: from, ToDate: to}, &out)
	return out, err
}
