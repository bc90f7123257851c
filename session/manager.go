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

package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pis-bookshop/storefront/storage"
)

// Renewer trades a token that is about to expire for a fresh one.
type Renewer interface {
	RenewToken(ctx context.Context, u User) (string, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context, u User) (string, error)

func (f RenewerFunc) RenewToken(ctx context.Context, u User) (string, error) {
	return f(ctx, u)
}

// Result is what the last Verify of a session found.
type Result struct {
	Decision  Decision  `json:"decision"`
	CheckedAt time.Time `json:"checkedAt"`
	Err       string    `json:"error,omitempty"`
}

// Manager runs the token check for every session, both on navigation and
// from the Watcher.
type Manager struct {
	store       storage.Store
	renewer     Renewer
	renewBefore time.Duration

	mu       sync.Mutex
	locks    map[string]*sessionLock
	seen     map[string]time.Time
	result   map[string]Result
	onForget []func(sid string)
}

// sessionLock lives in Manager.locks only while someone holds or waits for it.
type sessionLock struct {
	sync.Mutex
	refs int
}

// NewManager returns a manager over the session users kept in store.
func NewManager(store storage.Store, renewer Renewer, renewBefore time.Duration) *Manager {
	if renewBefore <= 0 {
		renewBefore = DefaultRenewBefore
	}
	return &Manager{
		store:       store,
		renewer:     renewer,
		renewBefore: renewBefore,
		locks:       make(map[string]*sessionLock),
		seen:        make(map[string]time.Time),
		result:      make(map[string]Result),
	}
}

// Store returns the view of the backing store owned by sid.
func (m *Manager) Store(sid string) storage.Store {
	return storage.Scope(m.store, sid)
}

// acquire locks sid and returns the matching unlock.
func (m *Manager) acquire(sid string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.locks[sid]
	if !ok {
		l = &sessionLock{}
		m.locks[sid] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		defer m.mu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(m.locks, sid)
		}
	}
}

// OnForget registers fn to be called with every session Active drops for
// being idle.
func (m *Manager) OnForget(fn func(sid string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onForget = append(m.onForget, fn)
}

// User returns the user logged in on sid.
func (m *Manager) User(ctx context.Context, sid string) (User, error) {
	return Load(ctx, m.Store(sid))
}

// Login stores u as the user of sid.
func (m *Manager) Login(ctx context.Context, sid string, u User, now time.Time) error {
	defer m.acquire(sid)()
	if err := Save(ctx, m.Store(sid), u); err != nil {
		return err
	}
	m.record(sid, now, Result{Decision: Valid, CheckedAt: now})
	return nil
}

// Logout removes the user of sid.
func (m *Manager) Logout(ctx context.Context, sid string) error {
	defer m.acquire(sid)()
	m.mu.Lock()
	delete(m.seen, sid)
	delete(m.result, sid)
	m.mu.Unlock()
	return Clear(ctx, m.Store(sid))
}

// Verify checks the token of the user logged in on sid. An expired token
// logs the session out; a token close to expiry is renewed. A failed renewal
// is returned as an error but the user stays logged in until expiry.
// Sessions without a user report ErrNoUser.
func (m *Manager) Verify(ctx context.Context, sid string, now time.Time) (Decision, error) {
	defer m.acquire(sid)()

	store := m.Store(sid)
	u, err := Load(ctx, store)
	if err != nil {
		return Valid, err
	}

	d := Expired
	if expiry, err := TokenExpiry(u.Token); err == nil {
		d = Decide(expiry, now, m.renewBefore)
	}
	res := Result{Decision: d, CheckedAt: now}
	defer func() { m.record(sid, now, res) }()

	switch d {
	case Expired:
		if err := Clear(ctx, store); err != nil {
			res.Err = err.Error()
			return d, errors.Wrap(err, "could not drop expired session")
		}
	case Renew:
		if m.renewer == nil {
			return d, nil
		}
		token, err := m.renewer.RenewToken(ctx, u)
		if err != nil {
			res.Err = err.Error()
			return d, errors.Wrap(err, "could not renew token")
		}
		u.Token = token
		if err := Save(ctx, store, u); err != nil {
			res.Err = err.Error()
			return d, errors.Wrap(err, "could not save renewed token")
		}
	}
	return d, nil
}

func (m *Manager) record(sid string, now time.Time, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[sid] = now
	m.result[sid] = res
}

// Touch marks sid as active at now.
func (m *Manager) Touch(sid string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[sid] = now
}

// LastResult returns the outcome of the last Verify of sid.
func (m *Manager) LastResult(sid string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.result[sid]
	return r, ok
}

// Active returns, sorted, the sessions seen since the given time and forgets
// the others, running the OnForget hooks for each of them.
func (m *Manager) Active(since time.Time) []string {
	m.mu.Lock()
	var out, idle []string
	for sid, at := range m.seen {
		if at.Before(since) {
			delete(m.seen, sid)
			delete(m.result, sid)
			idle = append(idle, sid)
			continue
		}
		out = append(out, sid)
	}
	hooks := append([]func(string){}, m.onForget...)
	m.mu.Unlock()

	for _, sid := range idle {
		for _, fn := range hooks {
			fn(sid)
		}
	}
	sort.Strings(out)
	return out
}
