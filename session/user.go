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

// Package session keeps the logged in user of a visitor session and decides
// when its token has to be renewed or dropped.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pis-bookshop/storefront/storage"
)

// StorageKey is the key the session user is persisted under.
const StorageKey = "user"

var (
	ErrNoUser        = errors.New("session: not logged in")
	ErrLoginResponse = errors.New("session: malformed login response")
	ErrUnknownRole   = errors.New("session: unknown role")
)

// Role of a logged in user.
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts the backend spelling, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// IsStaff reports whether r may manage orders.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Allows reports whether r may use something reserved to required. Admin
// satisfies every role.
func (r Role) Allows(required Role) bool {
	switch required {
	case "":
		return true
	case RoleUser:
		return r != ""
	case RoleEmployee:
		return r.IsStaff()
	case RoleAdmin:
		return r == RoleAdmin
	}
	return false
}

// User is the logged in user as persisted for the session.
type User struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// ParseLoginResponse splits the "token;role" body returned by /login.
func ParseLoginResponse(email, body string) (User, error) {
	token, rawRole, ok := strings.Cut(strings.TrimSpace(body), ";")
	if !ok || token == "" {
		return User{}, ErrLoginResponse
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return User{}, err
	}
	return User{Email: email, Token: token, Role: role}, nil
}

// Load returns the user persisted in store, ErrNoUser when nobody is logged
// in. A corrupt value counts as logged out.
func Load(ctx context.Context, store storage.Store) (User, error) {
	raw, err := store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return User{}, ErrNoUser
	}
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil || u.Token == "" {
		return User{}, ErrNoUser
	}
	return u, nil
}

// Save persists u.
func Save(ctx context.Context, store storage.Store, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return store.Set(ctx, StorageKey, raw)
}

// Clear logs the session out.
func Clear(ctx context.Context, store storage.Store) error {
	return store.Remove(ctx, StorageKey)
}
