package girder

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
)

// HealthStatus tracks application health
type HealthStatus struct {
	mu      sync.RWMutex
	healthy bool
	ready   bool
}

func newHealthStatus() *HealthStatus {
	return &HealthStatus{
		healthy: false, // Not healthy until OnStart succeeds
		ready:   false, // Not ready until the app says so
	}
}

func (h *HealthStatus) SetHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = healthy
}

func (h *HealthStatus) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *HealthStatus) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthy
}

func (h *HealthStatus) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// statusHandler writes 200/503 from a probe function.
func statusHandler(probe func() bool, up, down string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := up
		code := http.StatusOK
		if !probe() {
			status = down
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func startHealthServer(port string, status *HealthStatus) *http.Server {
	mux := http.NewServeMux()

	// Health check - is the app alive?
	mux.HandleFunc("/health", statusHandler(status.IsHealthy, "healthy", "unhealthy"))

	// Ready check - is the app ready to serve traffic?
	mux.HandleFunc("/ready", statusHandler(status.IsReady, "ready", "not ready"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting health server on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()

	return server
}
