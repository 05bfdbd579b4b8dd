// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"math"
	"mime"
	"net"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on http.DefaultServeMux
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/featurebasedb/empstats/errors"
	"github.com/featurebasedb/empstats/logger"
	"github.com/featurebasedb/empstats/tracing"
	"github.com/felixge/fgprof"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// RequestIDHeader carries the request ID. An incoming value is kept,
	// otherwise a new one is generated.
	RequestIDHeader = "X-Request-Id"

	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	defaultTopN  = 10
)

// Handler represents an HTTP handler.
type Handler struct {
	Handler http.Handler

	logger logger.Logger

	// Keeps the query argument validators for each handler
	validators map[string]*queryValidationSpec

	api *API

	ln net.Listener
	// url is used to hold the advertise bind address for printing a log during startup.
	url string

	closeTimeout  time.Duration
	longQueryTime time.Duration

	metricsEnabled bool

	server *http.Server

	middleware []func(http.Handler) http.Handler
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlerOption is a functional option type for Handler
type handlerOption func(s *Handler) error

func OptHandlerMiddleware(middleware func(http.Handler) http.Handler) handlerOption {
	return func(h *Handler) error {
		h.middleware = append(h.middleware, middleware)
		return nil
	}
}

func OptHandlerAllowedOrigins(origins []string) handlerOption {
	return func(h *Handler) error {
		if len(origins) == 0 {
			return nil
		}
		h.middleware = append(h.middleware, handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		))
		return nil
	}
}

func OptHandlerAPI(api *API) handlerOption {
	return func(h *Handler) error {
		h.api = api
		return nil
	}
}

func OptHandlerLogger(logger logger.Logger) handlerOption {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// OptHandlerListener set the listener that will be used by the HTTP server.
// Url must be the advertised URL. It is only used for the startup log. This
// option is mandatory.
func OptHandlerListener(ln net.Listener, url string) handlerOption {
	return func(h *Handler) error {
		h.ln = ln
		h.url = url
		return nil
	}
}

// OptHandlerCloseTimeout controls how long to wait for the http Server to
// shutdown cleanly before forcibly destroying it. Default is 30 seconds.
func OptHandlerCloseTimeout(d time.Duration) handlerOption {
	return func(h *Handler) error {
		h.closeTimeout = d
		return nil
	}
}

// OptHandlerLongQueryTime sets the request duration past which a request is
// logged as slow. Zero disables slow request logging.
func OptHandlerLongQueryTime(d time.Duration) handlerOption {
	return func(h *Handler) error {
		if d < 0 {
			return errors.Newf(errors.ErrInvalidArgument, "long query time must not be negative, got %v", d)
		}
		h.longQueryTime = d
		return nil
	}
}

// OptHandlerMetrics controls whether requests are recorded in the prometheus
// collectors and whether /metrics is served.
func OptHandlerMetrics(enabled bool) handlerOption {
	return func(h *Handler) error {
		h.metricsEnabled = enabled
		return nil
	}
}

// NewHandler returns a new instance of Handler with a default logger.
func NewHandler(opts ...handlerOption) (*Handler, error) {
	handler := &Handler{
		logger:         logger.NopLogger,
		closeTimeout:   time.Second * 30,
		metricsEnabled: true,
	}

	for _, opt := range opts {
		err := opt(handler)
		if err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}

	if handler.api == nil {
		return nil, errors.New(errors.ErrInvalidArgument, "must pass OptHandlerAPI")
	}

	if handler.ln == nil {
		return nil, errors.New(errors.ErrInvalidArgument, "must pass OptHandlerListener")
	}

	handler.Handler = newRouter(handler)
	handler.populateValidators()

	handler.server = &http.Server{Handler: handler}

	return handler, nil
}

func (h *Handler) Serve() error {
	h.logger.Infof("listening as %s", h.url)
	err := h.server.Serve(h.ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Errorf("HTTP handler terminated with error: %s\n", err)
		return errors.Wrap(err, "serve http")
	}
	return nil
}

// Close tries to cleanly shutdown the HTTP server, and failing that, after a
// timeout, calls Server.Close.
func (h *Handler) Close() error {
	deadlineCtx, cancelFunc := context.WithDeadline(context.Background(), time.Now().Add(h.closeTimeout))
	defer cancelFunc()
	err := h.server.Shutdown(deadlineCtx)
	if err != nil {
		err = h.server.Close()
	}
	return errors.Wrap(err, "shutdown/close http server")
}

func (h *Handler) populateValidators() {
	h.validators = map[string]*queryValidationSpec{}
	h.validators["GetSummary"] = queryValidationSpecRequired()
	h.validators["GetEmployees"] = queryValidationSpecRequired().Optional("page", "limit")
	h.validators["GetIndustries"] = queryValidationSpecRequired()
	h.validators["GetPerson"] = queryValidationSpecRequired("first_name", "last_name")
	h.validators["GetSalaryStats"] = queryValidationSpecRequired().Optional("industry")
	h.validators["GetExperienceStats"] = queryValidationSpecRequired().Optional("industry")
	h.validators["GetIndustryDistribution"] = queryValidationSpecRequired().Optional("top_n")
	h.validators["GetGenderDistribution"] = queryValidationSpecRequired()
	h.validators["GetAgeDistribution"] = queryValidationSpecRequired()
	h.validators["GetTopEarners"] = queryValidationSpecRequired().Optional("n")
	h.validators["GetTopExperienced"] = queryValidationSpecRequired().Optional("n")
	h.validators["GetCorrelations"] = queryValidationSpecRequired()
	h.validators["GetVersion"] = queryValidationSpecRequired()
	h.validators["GetHealth"] = queryValidationSpecRequired()
	h.validators["GetOpenAPI"] = queryValidationSpecRequired()
	h.validators["GetDocs"] = queryValidationSpecRequired()
}

func (h *Handler) queryArgValidator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := mux.CurrentRoute(r).GetName()

		if validator, ok := h.validators[key]; ok {
			if err := validator.validate(r.URL.Query()); err != nil {
				errText := err.Error()
				if validHeaderAcceptJSON(r.Header) {
					response := errorResponse{Error: errText}
					data, err := json.Marshal(response)
					if err != nil {
						h.logger.Errorf("failed to encode error %q as JSON: %v", errText, err)
					} else {
						errText = string(data)
					}
				}
				http.Error(w, errText, http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// assignRequestID makes sure every request and response carries a request ID.
func (h *Handler) assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) extractTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span, ctx := tracing.GlobalTracer.ExtractHTTPHeaders(r)
		defer span.Finish()
		span.LogKV("request_id", r.Header.Get(RequestIDHeader))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) collectStats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		t := time.Now()
		next.ServeHTTP(sw, r)
		dur := time.Since(t)

		if h.longQueryTime > 0 && dur > h.longQueryTime {
			h.logger.Warnf("HTTP request duration %v exceeds %v: %s %s (%s)", dur, h.longQueryTime, r.Method, r.URL.String(), r.Header.Get(RequestIDHeader))
		}

		if !h.metricsEnabled {
			return
		}
		route, err := mux.CurrentRoute(r).GetPathTemplate()
		if err != nil {
			route = "unknown"
		}
		CounterHTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.code)).Inc()
		HistogramHTTPRequestDuration.WithLabelValues(route).Observe(dur.Seconds())
	})
}

// newRouter creates a new mux http router.
func newRouter(handler *Handler) http.Handler {
	router := mux.NewRouter()

	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux).Methods("GET")
	router.PathPrefix("/debug/fgprof").Handler(fgprof.Handler()).Methods("GET")
	router.Handle("/debug/vars", expvar.Handler()).Methods("GET")
	if handler.metricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	router.HandleFunc("/api/summary", handler.chkAcceptJSON(handler.handleGetSummary)).Methods("GET").Name("GetSummary")
	router.HandleFunc("/api/employees", handler.chkAcceptJSON(handler.handleGetEmployees)).Methods("GET").Name("GetEmployees")
	router.HandleFunc("/api/industries", handler.chkAcceptJSON(handler.handleGetIndustries)).Methods("GET").Name("GetIndustries")
	router.HandleFunc("/api/person", handler.chkAcceptJSON(handler.handleGetPerson)).Methods("GET").Name("GetPerson")
	router.HandleFunc("/api/salary/stats", handler.chkAcceptJSON(handler.handleGetSalaryStats)).Methods("GET").Name("GetSalaryStats")
	router.HandleFunc("/api/experience/stats", handler.chkAcceptJSON(handler.handleGetExperienceStats)).Methods("GET").Name("GetExperienceStats")
	router.HandleFunc("/api/industry/distribution", handler.chkAcceptJSON(handler.handleGetIndustryDistribution)).Methods("GET").Name("GetIndustryDistribution")
	router.HandleFunc("/api/gender/distribution", handler.chkAcceptJSON(handler.handleGetGenderDistribution)).Methods("GET").Name("GetGenderDistribution")
	router.HandleFunc("/api/age/distribution", handler.chkAcceptJSON(handler.handleGetAgeDistribution)).Methods("GET").Name("GetAgeDistribution")
	router.HandleFunc("/api/top-earners", handler.chkAcceptJSON(handler.handleGetTopEarners)).Methods("GET").Name("GetTopEarners")
	router.HandleFunc("/api/top-experienced", handler.chkAcceptJSON(handler.handleGetTopExperienced)).Methods("GET").Name("GetTopExperienced")
	router.HandleFunc("/api/correlations", handler.chkAcceptJSON(handler.handleGetCorrelations)).Methods("GET").Name("GetCorrelations")

	router.HandleFunc("/version", handler.chkAcceptJSON(handler.handleGetVersion)).Methods("GET").Name("GetVersion")
	router.HandleFunc("/health", handler.handleGetHealth).Methods("GET").Name("GetHealth")
	router.HandleFunc("/openapi.json", handler.chkAcceptJSON(handler.handleGetOpenAPI)).Methods("GET").Name("GetOpenAPI")
	router.HandleFunc("/docs", handler.handleGetDocs).Methods("GET").Name("GetDocs")

	router.Use(handler.assignRequestID)
	router.Use(handler.collectStats)
	router.Use(handler.extractTracing)
	router.Use(handler.queryArgValidator)
	var h http.Handler = router
	for _, middleware := range handler.middleware {
		// Ideally, we would use `router.Use` to inject middleware,
		// instead of wrapping the handler. The reason we can't is
		// because the router will only apply middleware to matched
		// handlers. In this case, it won't match handlers with the
		// OPTIONS method, needed by the CORS middleware. This issue
		// is described in detail here:
		// https://github.com/gorilla/handlers/issues/142
		h = middleware(h)
	}
	return h
}

// ServeHTTP handles an HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			stack := debug.Stack()
			h.logger.Panicf("%s\n%s", err, stack)
			h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("internal error: %v", err)})
		}
	}()

	h.Handler.ServeHTTP(w, r)
}

// chkAcceptJSON rejects requests which won't accept a JSON response.
func (h *Handler) chkAcceptJSON(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !validHeaderAcceptJSON(r.Header) {
			http.Error(w, "JSON only acceptable response", http.StatusNotAcceptable)
			return
		}
		handler.ServeHTTP(w, r)
	}
}

// validHeaderAcceptJSON returns false if one or more Accept
// headers are present, but none of them are "application/json"
// (or any matching wildcard). Otherwise returns true.
func validHeaderAcceptJSON(header http.Header) bool {
	return validHeaderAcceptType(header, "application", "json")
}

func validHeaderAcceptType(header http.Header, typ, subtyp string) bool {
	if v, found := header["Accept"]; found {
		for _, v := range v {
			// A single header may list several comma separated types.
			for _, part := range strings.Split(v, ",") {
				t, _, err := mime.ParseMediaType(strings.TrimSpace(part))
				if err != nil && err != mime.ErrInvalidMediaParameter {
					continue
				}
				spl := strings.SplitN(t, "/", 2)
				if len(spl) < 2 {
					continue
				}
				switch {
				case spl[0] == typ && spl[1] == subtyp:
					return true
				case spl[0] == "*" && spl[1] == subtyp:
					return true
				case spl[0] == typ && spl[1] == "*":
					return true
				case spl[0] == "*" && spl[1] == "*":
					return true
				}
			}
		}
		return false
	}
	return true
}

// writeJSON writes v with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("write response error: %s", err)
	}
}

// writeError maps err to a status code by its error code and writes it as an
// errorResponse.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidArgument):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrDatasetNotLoaded), errors.Is(err, errors.ErrSourceInvalid):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	h.writeJSON(w, code, errorResponse{Error: err.Error()})
}

// intArg parses the named query argument, returning def if it is absent.
// The value must be an integer within [min, max]; max < min means no upper
// bound.
func intArg(q url.Values, name string, def, min, max int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
		// Atoi saturates to the nearest int, which the bounds below judge.
		err = nil
	}
	if err != nil {
		return 0, errors.Newf(errors.ErrInvalidArgument, "%s must be an integer, got %q", name, s)
	}
	if v < min {
		return 0, errors.Newf(errors.ErrInvalidArgument, "%s must be at least %d, got %d", name, min, v)
	}
	if max >= min && v > max {
		return 0, errors.Newf(errors.ErrInvalidArgument, "%s must be at most %d, got %d", name, max, v)
	}
	return v, nil
}

// handleGetSummary handles GET /api/summary requests.
func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.Summary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleGetEmployees handles GET /api/employees requests.
func (h *Handler) handleGetEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intArg(q, "page", defaultPage, 1, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intArg(q, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// A page whose offset doesn't fit in an int is past any dataset.
	if page-1 > (math.MaxInt-limit)/limit {
		h.writeError(w, r, ErrPageOutOfRange)
		return
	}
	resp, err := h.api.Employees(r.Context(), (page-1)*limit, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetIndustries(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.Industries(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.api.Person(r.Context(), q.Get("first_name"), q.Get("last_name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSalaryStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.SalaryStats(r.Context(), r.URL.Query().Get("industry"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetExperienceStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.ExperienceStats(r.Context(), r.URL.Query().Get("industry"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetIndustryDistribution(w http.ResponseWriter, r *http.Request) {
	topN, err := intArg(r.URL.Query(), "top_n", defaultTopN, 1, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.api.IndustryDistribution(r.Context(), topN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetGenderDistribution(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.GenderDistribution(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAgeDistribution(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.AgeDistribution(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTopEarners(w http.ResponseWriter, r *http.Request) {
	n, err := intArg(r.URL.Query(), "n", defaultTopN, 1, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.api.TopEarners(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTopExperienced(w http.ResponseWriter, r *http.Request) {
	n, err := intArg(r.URL.Query(), "n", defaultTopN, 1, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.api.TopExperienced(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCorrelations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.api.Correlations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleGetVersion handles /version requests.
func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
	}{
		Version: VersionString(),
	})
}

// handleGetHealth reports 200 once the dataset is loaded and 503 before.
func (h *Handler) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	if !h.api.Ready() {
		h.writeError(w, r, errors.New(errors.ErrDatasetNotLoaded, "dataset not loaded"))
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	})
}

type queryValidationSpec struct {
	required []string
	args     map[string]struct{}
}

func queryValidationSpecRequired(requiredArgs ...string) *queryValidationSpec {
	args := map[string]struct{}{}
	for _, arg := range requiredArgs {
		args[arg] = struct{}{}
	}

	return &queryValidationSpec{
		required: requiredArgs,
		args:     args,
	}
}

func (s *queryValidationSpec) Optional(args ...string) *queryValidationSpec {
	for _, arg := range args {
		s.args[arg] = struct{}{}
	}
	return s
}

func (s queryValidationSpec) validate(query url.Values) error {
	for _, req := range s.required {
		// An empty value is still a value.
		if _, ok := query[req]; !ok {
			return errors.Errorf("%s is required", req)
		}
	}
	for k := range query {
		if _, ok := s.args[k]; !ok {
			return errors.Errorf("%s is not a valid argument", k)
		}
	}
	return nil
}
