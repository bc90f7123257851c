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
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/pis-bookshop/storefront/validator"
)

// loginHandler exchanges credentials for a token and binds it to the session.
func (fe *frontendServer) loginHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.LoginPayload{Email: strings.TrimSpace(req.Email), Password: req.Password}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	u, err := fe.backend.authLogin(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.WithField("error", err).Warn("login failed")
		renderHTTPError(log, r, w, errors.Wrap(err, "login failed"), statusFor(err))
		return
	}
	sid := sessionID(r)
	if err := fe.sessions.Login(r.Context(), sid, u, fe.now()); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not store session"), http.StatusInternalServerError)
		return
	}
	log.WithField("email", u.Email).WithField("role", u.Role).Info("user logged in successfully")
	renderJSON(log, w, http.StatusOK, sessionView{SessionID: sid, LoggedIn: true, Email: u.Email, Role: u.Role})
}

// logoutHandler forgets the user and any checkout in progress. The cart stays.
func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	sid := sessionID(r)
	if err := fe.sessions.Logout(r.Context(), sid); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not log out"), http.StatusInternalServerError)
		return
	}
	fe.checkouts.Drop(sid)
	log.Info("user logged out")
	renderJSON(log, w, http.StatusOK, sessionView{SessionID: sid})
}

func (fe *frontendServer) registerHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	payload := validator.RegisterPayload{
		Firstname: req.Firstname,
		Surname:   req.Surname,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := fe.backend.authRegister(r.Context(), req); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "registration failed"), statusFor(err))
		return
	}
	log.WithField("email", req.Email).Info("user registered")
	w.WriteHeader(http.StatusCreated)
}

// sessionHandler reports who is logged in and the last token check.
func (fe *frontendServer) sessionHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	sid := sessionID(r)
	view := sessionView{SessionID: sid}
	if u, ok := fe.currentUser(r); ok {
		view.LoggedIn = true
		view.Email = u.Email
		view.Role = u.Role
	}
	if res, ok := fe.sessions.LastResult(sid); ok {
		view.Last = &res
	}
	renderJSON(log, w, http.StatusOK, view)
}

func (fe *frontendServer) profileHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	p, err := fe.backendFor(r).authGetProfile(r.Context())
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve profile"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, p)
}

func (fe *frontendServer) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var p UserProfile
	if err := decodeJSON(r, &p); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.ContactPayload{Firstname: p.Firstname, Surname: p.Surname, Email: p.Email, Phone: p.Phone}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if p.Address != nil {
		addr := validator.AddressPayload(*p.Address)
		if err := addr.Validate(); err != nil {
			renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
			return
		}
	}
	if err := fe.backendFor(r).authUpdateProfile(r.Context(), p); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not update profile"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, p)
}

func (fe *frontendServer) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.ChangePasswordPayload{Password: req.Password}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := fe.backendFor(r).authChangePassword(r.Context(), req.OldPassword, req.Password); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not change password"), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
