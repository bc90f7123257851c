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

package cart

import (
	"sync"

	"github.com/pis-bookshop/storefront/storage"
)

// Manager hands out one Controller per session so that concurrent requests
// of the same visitor serialize on the same lock.
type Manager struct {
	store storage.Store
	opts  []Option

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewManager returns a manager whose controllers persist into store, each
// under its own session namespace.
func NewManager(store storage.Store, opts ...Option) *Manager {
	return &Manager{
		store:       store,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// For returns the controller of sessionID.
func (m *Manager) For(sessionID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[sessionID]
	if !ok {
		c = New(storage.Scope(m.store, sessionID), m.opts...)
		m.controllers[sessionID] = c
	}
	return c
}

// Forget drops the in-memory controller of sessionID. Persisted contents stay.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.controllers, sessionID)
}

// Len is the number of controllers held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
