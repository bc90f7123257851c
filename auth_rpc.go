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
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/pis-bookshop/storefront/session"
)

// authLogin calls POST /login and returns the session user.
func (c *backendClient) authLogin(ctx context.Context, email, password string) (session.User, error) {
	var body string
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &body); err != nil {
		return session.User{}, err
	}
	return session.ParseLoginResponse(email, body)
}

// authRegister calls POST /register.
func (c *backendClient) authRegister(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/register", req, nil)
}

// RenewToken calls POST /renewToken with the current token and keeps the
// token part of the "token;role" answer.
func (c *backendClient) RenewToken(ctx context.Context, u session.User) (string, error) {
	var body string
	if err := c.withToken(u.Token).do(ctx, http.MethodPost, "/renewToken", roleRequest{Email: u.Email}, &body); err != nil {
		return "", err
	}
	token, _, _ := strings.Cut(strings.TrimSpace(body), ";")
	if token == "" {
		return "", errors.New("empty token in renewal response")
	}
	return token, nil
}

// authGetProfile calls GET /user.
func (c *backendClient) authGetProfile(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	if err := c.do(ctx, http.MethodGet, "/user", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// authUpdateProfile calls PUT /user.
func (c *backendClient) authUpdateProfile(ctx context.Context, p UserProfile) error {
	return c.do(ctx, http.MethodPut, "/user", p, nil)
}

// authChangePassword calls PUT /user/password.
func (c *backendClient) authChangePassword(ctx context.Context, oldPassword, password string) error {
	return c.do(ctx, http.MethodPut, "/user/password", passwordChangeRequest{Password: password, OldPassword: oldPassword}, nil)
}
