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
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Watcher periodically verifies the sessions that were recently active, so
// tokens get renewed or dropped between navigations too.
type Watcher struct {
	Manager  *Manager
	Interval time.Duration
	// IdleAfter is how long a session may stay quiet before it is no longer
	// watched.
	IdleAfter time.Duration
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// Run checks every Interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one round of checks.
func (w *Watcher) Sweep(ctx context.Context) {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	idle := w.IdleAfter
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	for _, sid := range w.Manager.Active(now.Add(-idle)) {
		if ctx.Err() != nil {
			return
		}
		d, err := w.Manager.Verify(ctx, sid, now)
		switch {
		case errors.Is(err, ErrNoUser):
		case err != nil:
			w.log().WithField("session", sid).WithError(err).Warn("token check failed")
		case d != Valid:
			w.log().WithField("session", sid).Debugf("token %s", d)
		}
	}
}

func (w *Watcher) log() logrus.FieldLogger {
	if w.Log == nil {
		return logrus.StandardLogger()
	}
	return w.Log
}
