package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/wolfman30/leadradar/internal/apperror"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// ErrDatabaseUnavailable is reported when the health ping fails.
var ErrDatabaseUnavailable = &apperror.Error{
	Status:  http.StatusInternalServerError,
	Code:    "DB_ERROR",
	Message: "Database connection failed",
}

const healthPingTimeout = 3 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of a successful health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	DB        string    `json:"db"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler reports whether the API can reach its database.
type HealthHandler struct {
	db     Pinger
	logger *logging.Logger
	now    func() time.Time
}

// NewHealthHandler creates a health handler. A nil db reports the in-memory
// store.
func NewHealthHandler(db Pinger, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, logger: logger, now: time.Now}
}

// Check handles GET /api/health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	state := "memory"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check failed", "error", err)
			apperror.Write(w, r, nil, ErrDatabaseUnavailable)
			return
		}
		state = "connected"
	}
	render.JSON(w, r, HealthResponse{Status: "ok", DB: state, Timestamp: h.now().UTC()})
}
