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
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pis-bookshop/storefront/session"
)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}

type logHandler struct {
	log  *logrus.Logger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := uuid.NewRandom()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID.String())

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID.String(),
	})
	if v, ok := r.Context().Value(ctxKeySessionID{}).(string); ok {
		log = log.WithField("session", v)
	}
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b}).Debugf("request complete")
	}()

	ctx = context.WithValue(ctx, ctxKeyLog{}, log)
	r = r.WithContext(ctx)
	lh.next.ServeHTTP(rr, r)
}

// ensureSessionID hands out a session cookie to visitors without a valid one.
// The id namespaces the visitor's stored state, so only UUIDs are accepted.
func ensureSessionID(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				sessionID = c.Value
			}
		}
		if sessionID == "" {
			u, _ := uuid.NewRandom()
			sessionID = u.String()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieSessionID,
				Value:    sessionID,
				MaxAge:   cookieMaxAge,
				Path:     "/",
				HttpOnly: true,
			})
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// verifySession runs the token check on every navigation. An expired
// session is logged out and flagged to the page with a header.
func (fe *frontendServer) verifySession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(r)
		now := fe.now()
		fe.sessions.Touch(sid, now)
		d, err := fe.sessions.Verify(r.Context(), sid, now)
		if errors.Is(err, session.ErrNoUser) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			requestLog(r).WithError(err).Warn("session check failed")
		}
		w.Header().Set(headerSessionState, d.String())
		next.ServeHTTP(w, r)
	})
}

// requireRole only lets through users whose role allows required.
func (fe *frontendServer) requireRole(required session.Role, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := requestLog(r)
		u, ok := fe.currentUser(r)
		if !ok {
			renderHTTPError(log, r, w, errors.New("login required"), http.StatusUnauthorized)
			return
		}
		if !u.Role.Allows(required) {
			renderHTTPError(log, r, w, errors.New("insufficient role"), http.StatusForbidden)
			return
		}
		h(w, r)
	}
}

func requestLog(r *http.Request) logrus.FieldLogger {
	if log, ok := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return logrus.StandardLogger()
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}

// currentUser returns the user logged in on the request's session.
func (fe *frontendServer) currentUser(r *http.Request) (session.User, bool) {
	u, err := fe.sessions.User(r.Context(), sessionID(r))
	if err != nil {
		return session.User{}, false
	}
	return u, true
}

// backendFor returns a backend client acting as the request's user.
func (fe *frontendServer) backendFor(r *http.Request) *backendClient {
	if u, ok := fe.currentUser(r); ok {
		return fe.backend.withToken(u.Token)
	}
	return fe.backend
}
