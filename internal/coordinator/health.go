package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// HealthMetrics is a point-in-time summary of swarm health.
type HealthMetrics struct {
	Timestamp        time.Time          `json:"timestamp"`
	ActiveAgents     int                `json:"active_agents"`
	TotalAgents      int                `json:"total_agents"`
	RoleDistribution map[swarm.Role]int `json:"role_distribution"`
	MeanEnergy       float64            `json:"mean_energy"`
	CyclesCompleted  uint64             `json:"cycles_completed"`
	FailedTasks      uint64             `json:"failed_tasks"`
	FieldCells       int                `json:"field_cells"`
	GlobalBest       *swarm.GlobalBest  `json:"global_best,omitempty"`
}

// Health computes the current swarm health metrics. An agent counts as
// active while it is not resting in the SHADE role.
func (c *Coordinator) Health() HealthMetrics {
	metrics := HealthMetrics{
		Timestamp:        time.Now().UTC(),
		TotalAgents:      len(c.order),
		RoleDistribution: make(map[swarm.Role]int),
		FieldCells:       c.field.CellCount(),
		GlobalBest:       c.GlobalBest(),
	}

	var energySum float64
	for _, name := range c.order {
		slot := c.slots[name]
		slot.mu.Lock()
		state := slot.pilgrim.State()
		slot.mu.Unlock()

		metrics.RoleDistribution[state.CurrentRole]++
		energySum += state.EnergyLevel
		if state.CurrentRole != swarm.RoleShade {
			metrics.ActiveAgents++
		}
	}
	if metrics.TotalAgents > 0 {
		metrics.MeanEnergy = energySum / float64(metrics.TotalAgents)
	}

	c.mu.Lock()
	metrics.CyclesCompleted = c.cycles
	metrics.FailedTasks = c.failures
	c.mu.Unlock()

	return metrics
}

// HealthResponse is the /healthz payload. The status CLI decodes it.
type HealthResponse struct {
	Status string        `json:"status"`
	Redis  string        `json:"redis,omitempty"`
	Error  string        `json:"error,omitempty"`
	Swarm  HealthMetrics `json:"swarm"`
}

// HealthServer exposes the coordinator's health over HTTP for liveness
// probes and the status CLI.
type HealthServer struct {
	coordinator *Coordinator
	logger      *zap.Logger
	server      *http.Server
}

// NewHealthServer creates a health server bound to addr (e.g. ":8080").
func NewHealthServer(c *Coordinator, addr string, logger *zap.Logger) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HealthServer{coordinator: c, logger: logger.Named("health")}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)

	h.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return h
}

// Start begins serving in the background.
func (h *HealthServer) Start() {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("health server failed", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz. The daemon is healthy when its
// Redis mirror (if configured) is reachable; the swarm metrics ride along
// either way.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Swarm:  h.coordinator.Health(),
	}
	status := http.StatusOK

	if store := h.coordinator.store; store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			response.Redis = "disconnected"
			response.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response.Redis = "connected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Warn("failed to encode health response", zap.Error(err))
	}
}
