package girder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/girderhq/girder/config"
	"github.com/gorilla/mux"
)

// Handler takes context and request, returns a Response. It is the terminal
// stage of every route's chain.
type Handler func(ctx context.Context, r *http.Request) Response

// Response knows how to write itself to http.ResponseWriter
type Response interface {
	Write(ctx context.Context, w http.ResponseWriter) error
}

// App interface
type App interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	Routes() []Route
}

// Route represents an HTTP route. Middleware run ahead of the Handler
// through the chain engine, in the order listed.
type Route struct {
	Method     string
	Path       string
	Handler    Handler
	Middleware []Middleware // Optional per-route middleware
}

// RequestScope is the request-side context value the HTTP binding threads
// through a route's chain. Middleware may replace Request (for example to
// attach values to its context); later stages see the replacement.
type RequestScope struct {
	Request *http.Request
}

// ResponseSlot is the response-side context value. The terminal handler
// fills it; middleware may inspect or replace the response, including from
// a teardown phase after waiting on the continuation's handle.
type ResponseSlot struct {
	Response Response
}

// ErrHalt signals that a middleware answered the request itself. The
// middleware fills the ResponseSlot and aborts with ErrHalt; the HTTP
// binding writes the prepared response instead of reporting a failure.
var ErrHalt = errors.New("girder: response already prepared")

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns a permissive CORS config for development
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// bind assembles a route's chain once, at registration time, and returns
// the http handler that drives it per request.
func bind(route Route) http.HandlerFunc {
	terminal := func(req, res any) error {
		scope := req.(*RequestScope)
		slot := res.(*ResponseSlot)
		r := scope.Request
		slot.Response = route.Handler(r.Context(), r)
		return nil
	}
	bound := New(route.Middleware...).Then(terminal)

	return func(w http.ResponseWriter, r *http.Request) {
		scope := &RequestScope{Request: r}
		slot := &ResponseSlot{}

		err := bound(scope, slot)
		if err != nil && !errors.Is(err, ErrHalt) {
			log.Printf("chain error on %s %s: %v", r.Method, r.URL.Path, err)
			if slot.Response == nil {
				slot.Response = Error(map[string]string{"error": "internal server error"})
			}
		}
		if slot.Response == nil {
			// Chain succeeded without producing a response.
			slot.Response = JSON(http.StatusNoContent, nil)
		}

		ctx := scope.Request.Context()
		if werr := slot.Response.Write(ctx, w); werr != nil {
			http.Error(w, "Internal Server Error", 500)
		}
	}
}

func Run(app App, cfg config.BaseConfig) error {
	return RunWithCORS(app, cfg, DefaultCORSConfig())
}

func RunWithCORS(app App, cfg config.BaseConfig, corsConfig CORSConfig) error {
	ctx := context.Background()

	// Create health status tracker
	healthStatus := newHealthStatus()

	// Start health server BEFORE calling OnStart
	// This way Nomad/K8s can see the container is alive
	healthServer := startHealthServer(strconv.Itoa(cfg.GetHealthPort()), healthStatus)

	// Call app.OnStart()
	if err := app.OnStart(ctx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}

	// OnStart succeeded, mark as healthy
	healthStatus.SetHealthy(true)

	// Start cron jobs for apps that schedule any
	jobRunner := startJobs(app)

	routes := app.Routes()

	if len(routes) == 0 {
		// No HTTP routes, but health server (and any jobs) keep running
		log.Println("No HTTP routes, running in background mode")

		// Mark as ready (no HTTP server to wait for)
		healthStatus.SetReady(true)

		// Wait for shutdown signal
		quit := make(chan os.Signal, 1)
		ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopJobs(shutdownCtx, jobRunner)
		healthServer.Shutdown(shutdownCtx)

		// Call app.OnStop()
		if err := app.OnStop(ctx); err != nil {
			log.Printf("Error during OnStop: %v", err)
		}

		return nil
	}

	// Create main HTTP server
	router := mux.NewRouter()

	// Register routes
	for _, route := range routes {
		r := route

		router.HandleFunc(r.Path, bind(r)).Methods(r.Method)

		// Also register OPTIONS for preflight (CORS)
		router.HandleFunc(r.Path, func(w http.ResponseWriter, req *http.Request) {
			// Preflight requests just return 200 OK with CORS headers
			w.WriteHeader(http.StatusOK)
		}).Methods("OPTIONS")
	}

	// Wrap router with CORS middleware
	corsHandler := corsMiddleware(corsConfig)(router)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.GetHTTPPort()),
		Handler: corsHandler,
	}

	// Start main server
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Server is up, mark as ready
	healthStatus.SetReady(true)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down servers...")

	// Mark as not ready (stop accepting new traffic)
	healthStatus.SetReady(false)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopJobs(shutdownCtx, jobRunner)

	// Shutdown main server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Main server forced to shutdown: %v", err)
	}

	// Shutdown health server
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Health server forced to shutdown: %v", err)
	}

	// Call app.OnStop()
	if err := app.OnStop(ctx); err != nil {
		log.Printf("Error during OnStop: %v", err)
	}

	log.Println("Servers stopped")
	return nil
}

// corsMiddleware wraps an http.Handler with CORS headers
func corsMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			for _, allowedOrigin := range cfg.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					if allowedOrigin == "*" {
						origin = "*"
					}
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			// Set other CORS headers
			if len(cfg.AllowedMethods) > 0 {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			}

			if len(cfg.AllowedHeaders) > 0 {
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			}

			if len(cfg.ExposedHeaders) > 0 {
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
			}

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if cfg.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Request Helpers

func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Response implementations ---

type JSONResponse struct {
	StatusCode int
	Data       any
}

func (r JSONResponse) Write(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	if r.Data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(r.Data)
}

func JSON(statusCode int, data any) Response {
	return JSONResponse{StatusCode: statusCode, Data: data}
}

func Error(data any) Response {
	return JSONResponse{StatusCode: 500, Data: data}
}
