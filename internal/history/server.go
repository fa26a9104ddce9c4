package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/example/notification-pipeline/internal/channels"
	"github.com/example/notification-pipeline/internal/common"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/store"
)

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "history_requests_total",
	Help: "History API requests, by route and status",
}, []string{"route", "status"})

// Reader is the slice of the notification store the API serves.
type Reader interface {
	Get(ctx context.Context, id string) (notify.Notification, error)
	ListUser(ctx context.Context, userID string) ([]notify.Notification, error)
	RecentDashboard(ctx context.Context, key string, limit int64) ([]json.RawMessage, error)
}

// Server is the read surface over the notification store: audit lookups,
// per-user history and the dashboard's recent list.
type Server struct {
	History Reader
	Logger  zerolog.Logger
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/v1/notifications/{id}", s.getNotification)
	r.Get("/v1/users/{userID}/notifications", s.listUserNotifications)
	r.Get("/v1/dashboard/recent", s.recentDashboard)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) getNotification(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("history").Start(r.Context(), "get_notification")
	defer span.End()

	id := chi.URLParam(r, "id")
	n, err := s.History.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondErr(ctx, w, "get", http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.respondErr(ctx, w, "get", http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, "get", n)
}

func (s *Server) listUserNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("history").Start(r.Context(), "list_user_notifications")
	defer span.End()

	userID := chi.URLParam(r, "userID")
	out, err := s.History.ListUser(ctx, userID)
	if err != nil {
		s.respondErr(ctx, w, "list_user", http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, "list_user", map[string]any{"notifications": out})
}

func (s *Server) recentDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("history").Start(r.Context(), "recent_dashboard")
	defer span.End()

	out, err := s.History.RecentDashboard(ctx, channels.DashboardListKey, 100)
	if err != nil {
		s.respondErr(ctx, w, "dashboard", http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, "dashboard", map[string]any{"notifications": out})
}

func (s *Server) respondJSON(w http.ResponseWriter, route string, v any) {
	requestCounter.WithLabelValues(route, "ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondErr(ctx context.Context, w http.ResponseWriter, route string, status int, err error) {
	logger := common.WithContext(ctx, s.Logger)
	logger.Error().Err(err).Int("status", status).Str("route", route).Msg("history request failed")
	requestCounter.WithLabelValues(route, http.StatusText(status)).Inc()
	http.Error(w, err.Error(), status)
}
