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
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/pis-bookshop/storefront/session"
	"github.com/pis-bookshop/storefront/validator"
)

func (fe *frontendServer) adminRoutes(r *mux.Router) {
	admin := func(h http.HandlerFunc) http.HandlerFunc { return fe.requireRole(session.RoleAdmin, h) }

	r.HandleFunc("/categories", admin(fe.forwardHandler(http.MethodPost, "/category"))).Methods(http.MethodPost)
	r.HandleFunc("/categories/{id:[0-9]+}", admin(fe.forwardHandler(http.MethodPut, "/category/{id}"))).Methods(http.MethodPut)
	r.HandleFunc("/categories/{id:[0-9]+}", admin(fe.forwardHandler(http.MethodDelete, "/category/{id}"))).Methods(http.MethodDelete)

	r.HandleFunc("/languages", admin(fe.forwardHandler(http.MethodPost, "/language"))).Methods(http.MethodPost)
	r.HandleFunc("/languages/{id:[0-9]+}", admin(fe.forwardHandler(http.MethodDelete, "/language/{id}"))).Methods(http.MethodDelete)

	r.HandleFunc("/books", admin(fe.forwardHandler(http.MethodPost, "/productdescription"))).Methods(http.MethodPost)
	r.HandleFunc("/books/{id:[0-9]+}", admin(fe.forwardHandler(http.MethodPut, "/productdescription/{id}"))).Methods(http.MethodPut)
	r.HandleFunc("/books/{id:[0-9]+}", admin(fe.forwardHandler(http.MethodDelete, "/productdescription/{id}"))).Methods(http.MethodDelete)
	r.HandleFunc("/books/{id:[0-9]+}/discount", admin(fe.discountHandler)).Methods(http.MethodPut)
	r.HandleFunc("/books/{id:[0-9]+}/stock", fe.requireRole(session.RoleEmployee, fe.stockHandler)).Methods(http.MethodPut)

	r.HandleFunc("/employees", admin(fe.employeesHandler)).Methods(http.MethodGet)
	r.HandleFunc("/users", admin(fe.usersHandler)).Methods(http.MethodGet)
	r.HandleFunc("/roles/{role}", admin(fe.setRoleHandler)).Methods(http.MethodPost)
	r.HandleFunc("/statistics/{kind}", admin(fe.statisticsHandler)).Methods(http.MethodPost)
}

// forwardHandler relays the request body to the backend path, with {name}
// placeholders filled from the route variables.
func (fe *frontendServer) forwardHandler(method, pattern string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := requestLog(r)
		path := pattern
		for k, v := range mux.Vars(r) {
			path = strings.ReplaceAll(path, "{"+k+"}", v)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			renderHTTPError(log, r, w, errors.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if len(body) > 0 && !json.Valid(body) {
			renderHTTPError(log, r, w, errors.New("invalid request body: not JSON"), http.StatusBadRequest)
			return
		}

		log.WithField("backend.path", path).Info("forwarding admin change")
		out, err := fe.backendFor(r).forward(r.Context(), method, path, body)
		if err != nil {
			renderHTTPError(log, r, w, errors.Wrapf(err, "%s %s failed", method, path), statusFor(err))
			return
		}
		if out == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !json.Valid(out) {
			// plain text answers are wrapped so the page always gets JSON
			renderJSON(log, w, http.StatusOK, map[string]string{"message": string(out)})
			return
		}
		renderJSON(log, w, http.StatusOK, out)
	}
}

func (fe *frontendServer) discountHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	var body struct {
		Discount int `json:"discount"`
	}
	if err := decodeJSON(r, &body); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.DiscountPayload{ProductID: id, Discount: body.Discount}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := fe.backendFor(r).setDiscount(r.Context(), id, payload.Discount); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not set discount"), statusFor(err))
		return
	}
	log.WithField("product", id).WithField("discount", payload.Discount).Info("discount changed")
	w.WriteHeader(http.StatusNoContent)
}

func (fe *frontendServer) stockHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	id, err := pathID(r, "id")
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	var body struct {
		Amount int `json:"amount"`
	}
	if err := decodeJSON(r, &body); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.StockPayload{ProductID: id, Amount: body.Amount}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := fe.backendFor(r).setStock(r.Context(), id, payload.Amount); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not set stock"), statusFor(err))
		return
	}
	log.WithField("product", id).WithField("amount", payload.Amount).Info("stock changed")
	w.WriteHeader(http.StatusNoContent)
}

func (fe *frontendServer) employeesHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	users, err := fe.backendFor(r).getEmployees(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve employees"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, users)
}

func (fe *frontendServer) usersHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	users, err := fe.backendFor(r).getUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve users"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, users)
}

func (fe *frontendServer) setRoleHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.SetRolePayload{Email: strings.TrimSpace(req.Email), Role: mux.Vars(r)["role"]}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := fe.backendFor(r).setRole(r.Context(), payload.Email, payload.Role); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not set role"), statusFor(err))
		return
	}
	log.WithField("email", payload.Email).WithField("role", payload.Role).Info("role changed")
	w.WriteHeader(http.StatusNoContent)
}

func (fe *frontendServer) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	var req statisticsRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.StatisticsPayload{Kind: mux.Vars(r)["kind"], FromDate: req.FromDate, ToDate: req.ToDate}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	from, to := payload.Range()
	out, err := fe.backendFor(r).statistics(r.Context(), payload.Kind, from, to)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve statistics"), statusFor(err))
		return
	}
	renderJSON(log, w, http.StatusOK, out)
}
