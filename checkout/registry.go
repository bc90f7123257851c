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

package checkout

import (
	"sync"
)

// Registry holds the checkout in progress of every session. Flows live in
// memory only; a restarted server starts every checkout over.
type Registry struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

// Put makes f the flow of sid, replacing any earlier one.
func (r *Registry) Put(sid string, f *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[sid] = f
}

// Get returns the flow of sid.
func (r *Registry) Get(sid string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[sid]
	return f, ok
}

// Drop forgets the flow of sid.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, sid)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
