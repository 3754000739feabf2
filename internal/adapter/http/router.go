package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"exchange-rate-facade/internal/metrics"
	"exchange-rate-facade/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	AllowedMethods []string
}

type Router struct {
	handler *Handler
	limiter *IPRateLimiter
	cors    CORSConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewRouter(handler *Handler, limiter *IPRateLimiter, cors CORSConfig, log *logger.Logger, metrics *metrics.Metrics) *Router {
	return &Router{
		handler: handler,
		limiter: limiter,
		cors:    cors,
		log:     log,
		metrics: metrics,
	}
}

func (r *Router) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, req)
	})
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		crw := &customResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(crw, req)

		path := req.URL.Path
		if route := mux.CurrentRoute(req); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		duration := time.Since(start)
		r.metrics.HTTPRequestDuration.WithLabelValues(path, req.Method).Observe(duration.Seconds())
		r.metrics.HTTPRequestsTotal.WithLabelValues(path, req.Method, strconv.Itoa(crw.statusCode/100)+"xx").Inc()

		r.log.Info("HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"query", req.URL.RawQuery,
			"status", crw.statusCode,
			"duration", duration,
			"remote_addr", req.RemoteAddr,
			"request_id", w.Header().Get(requestIDHeader),
		)
	})
}

func (r *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := r.limiter.clientIP(req)
		if !r.limiter.Allow(ip) {
			r.metrics.RateLimitedTotal.Inc()
			r.log.Warn("Rate limit exceeded", "ip", ip, "path", req.URL.Path)
			r.handler.sendErrorResponse(w, http.StatusTooManyRequests, rateLimitedMessage)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type customResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (crw *customResponseWriter) WriteHeader(code int) {
	crw.statusCode = code
	crw.ResponseWriter.WriteHeader(code)
}

func (r *Router) SetupRoutes() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(r.requestIDMiddleware, r.loggingMiddleware)
	router.MethodNotAllowedHandler = http.HandlerFunc(r.handler.MethodNotAllowedHandler)

	api := router.PathPrefix("/api").Subrouter()
	// without its own handler a subrouter method mismatch falls through to 404
	api.MethodNotAllowedHandler = http.HandlerFunc(r.handler.MethodNotAllowedHandler)
	if r.limiter != nil {
		api.Use(r.rateLimitMiddleware)
	}
	api.HandleFunc("/exchange", r.handler.GetExchangeRateHandler).Methods(http.MethodGet)
	api.HandleFunc("/exchange-rates", r.handler.GetAllExchangeRatesHandler).Methods(http.MethodGet)
	api.HandleFunc("/exchange-rates", r.handler.AddExchangeRateHandler).Methods(http.MethodPost)
	api.HandleFunc("/cache", r.handler.FlushCacheHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api-docs", r.handler.DocsHandler).Methods(http.MethodGet)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	rootMux := http.NewServeMux()
	rootMux.Handle("/metrics", promhttp.Handler())
	rootMux.Handle("/", router)

	if len(r.cors.AllowedOrigins) == 0 {
		return rootMux
	}

	return handlers.CORS(
		handlers.AllowedOrigins(r.cors.AllowedOrigins),
		handlers.AllowedHeaders(r.cors.AllowedHeaders),
		handlers.AllowedMethods(r.cors.AllowedMethods),
	)(rootMux)
}
