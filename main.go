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
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pis-bookshop/storefront/cart"
	"github.com/pis-bookshop/storefront/checkout"
	"github.com/pis-bookshop/storefront/session"
	"github.com/pis-bookshop/storefront/storage"
)

const (
	port         = "8080"
	cookieMaxAge = 60 * 60 * 48

	cookiePrefix    = "shop_"
	cookieSessionID = cookiePrefix + "session-id"

	headerSessionState = "X-Session-State"
)

type ctxKeySessionID struct{}

type frontendServer struct {
	backend   *backendClient
	sessions  *session.Manager
	carts     *cart.Manager
	checkouts *checkout.Registry

	now func() time.Time
}

type config struct {
	listenAddr    string
	port          string
	baseURL       string
	backendAddr   string
	storeDriver   string
	storeDSN      string
	renewBefore   time.Duration
	checkInterval time.Duration
	tracing       bool
	profiler      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded")
	}
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	if cfg.tracing {
		log.Info("Tracing enabled.")
		tp, _ := initTracing(log, ctx)
		defer tp.Shutdown(context.Background())
	} else {
		log.Info("Tracing disabled.")
	}

	if cfg.profiler {
		log.Info("Profiling enabled.")
		go initProfiling(log, "storefront", "1.0.0")
	} else {
		log.Info("Profiling disabled.")
	}

	store, closeStore, err := openStore(cfg.storeDriver, cfg.storeDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()
	log.WithField("driver", cfg.storeDriver).Info("session store opened")

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	fe := newFrontendServer(newBackendClient(cfg.backendAddr, httpClient), store, cfg.renewBefore)

	watcher := &session.Watcher{
		Manager:  fe.sessions,
		Interval: cfg.checkInterval,
		Log:      log.WithField("component", "token-watcher"),
	}
	go watcher.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.listenAddr + ":" + cfg.port,
		Handler: fe.handler(log, cfg.baseURL),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("starting server on %s:%s", cfg.listenAddr, cfg.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func loadConfig() (config, error) {
	cfg := config{
		listenAddr:    os.Getenv("LISTEN_ADDR"),
		port:          port,
		baseURL:       os.Getenv("BASE_URL"),
		storeDriver:   "memory",
		storeDSN:      os.Getenv("STORE_DSN"),
		renewBefore:   session.DefaultRenewBefore,
		checkInterval: time.Minute,
		tracing:       os.Getenv("ENABLE_TRACING") == "1",
		profiler:      os.Getenv("ENABLE_PROFILER") == "1",
	}
	if os.Getenv("PORT") != "" {
		cfg.port = os.Getenv("PORT")
	}
	if d := os.Getenv("STORE_DRIVER"); d != "" {
		cfg.storeDriver = d
	}
	mustMapEnv(&cfg.backendAddr, "BACKEND_API_ADDR")

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"TOKEN_RENEW_BEFORE", &cfg.renewBefore},
		{"TOKEN_CHECK_INTERVAL", &cfg.checkInterval},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return cfg, errors.Errorf("environment variable %q is not a positive duration: %q", d.key, v)
		}
		*d.dst = parsed
	}
	return cfg, nil
}

func openStore(driver, dsn string) (storage.Store, func() error, error) {
	switch driver {
	case "memory":
		return storage.NewMemory(), func() error { return nil }, nil
	case "sqlite":
		if dsn == "" {
			dsn = "data/storefront.db"
		}
		s, err := storage.OpenSQLite(dsn)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not open session store")
		}
		return s, s.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func newFrontendServer(backend *backendClient, store storage.Store, renewBefore time.Duration) *frontendServer {
	fe := &frontendServer{
		backend:   backend,
		sessions:  session.NewManager(store, backend, renewBefore),
		carts:     cart.NewManager(store, cart.WithStock(backend.stockOf)),
		checkouts: checkout.NewRegistry(),
		now:       time.Now,
	}
	// idle sessions keep their stored cart and user, in-memory state goes
	fe.sessions.OnForget(fe.carts.Forget)
	fe.sessions.OnForget(fe.checkouts.Drop)
	return fe
}

func (fe *frontendServer) router(baseUrl string) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix(baseUrl + "/api").Subrouter()

	api.HandleFunc("/books", fe.booksHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/books/filters", fe.filterOptionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", fe.bookHandler).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/cart", fe.viewCartHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/cart", fe.emptyCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/{id:[0-9]+}/add", fe.addOneHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/{id:[0-9]+}/remove-one", fe.removeOneHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/{id:[0-9]+}", fe.setQuantityHandler).Methods(http.MethodPut)
	api.HandleFunc("/cart/{id:[0-9]+}", fe.removeFromCartHandler).Methods(http.MethodDelete)

	api.HandleFunc("/checkout", fe.beginCheckoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/checkout", fe.checkoutStateHandler).Methods(http.MethodGet)
	api.HandleFunc("/checkout/contact", fe.checkoutContactHandler).Methods(http.MethodPost)
	api.HandleFunc("/checkout/address", fe.checkoutAddressHandler).Methods(http.MethodPost)

	api.HandleFunc("/orders", fe.requireRole(session.RoleUser, fe.myOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/all", fe.requireRole(session.RoleEmployee, fe.allOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/by-email/{email}", fe.requireRole(session.RoleEmployee, fe.ordersByEmailHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", fe.orderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}/status", fe.requireRole(session.RoleEmployee, fe.changeOrderStatusHandler)).Methods(http.MethodPut)

	api.HandleFunc("/login", fe.loginHandler).Methods(http.MethodPost)
	api.HandleFunc("/logout", fe.logoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/register", fe.registerHandler).Methods(http.MethodPost)
	api.HandleFunc("/session", fe.sessionHandler).Methods(http.MethodGet)
	api.HandleFunc("/profile", fe.requireRole(session.RoleUser, fe.profileHandler)).Methods(http.MethodGet)
	api.HandleFunc("/profile", fe.requireRole(session.RoleUser, fe.updateProfileHandler)).Methods(http.MethodPut)
	api.HandleFunc("/profile/password", fe.requireRole(session.RoleUser, fe.changePasswordHandler)).Methods(http.MethodPut)

	fe.adminRoutes(api.PathPrefix("/admin").Subrouter())

	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })
	return r
}

// handler wraps the router with the session check, request logging, session
// cookies and tracing, innermost first.
func (fe *frontendServer) handler(log *logrus.Logger, baseUrl string) http.Handler {
	var handler http.Handler = fe.router(baseUrl)
	handler = fe.verifySession(handler)                  // renew or drop tokens
	handler = &logHandler{log: log, next: handler}       // add logging
	handler = ensureSessionID(handler)                   // add session ID
	handler = otelhttp.NewHandler(handler, "storefront") // add OTel tracing
	return handler
}

func initTracing(log logrus.FieldLogger, ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	log.Info("Tracing provider initialized (no exporter configured)")
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
			// ProjectID must be set if not running on GCP.
			// ProjectID: "my-project",
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}

func mustMapEnv(target *string, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		panic(fmt.Sprintf("environment variable %q not set", envKey))
	}
	*target = v
}
