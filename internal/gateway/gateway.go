package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytevault/server/internal/billing"
	"github.com/bytevault/server/internal/sharing"
	"github.com/bytevault/server/internal/storage"
	"github.com/bytevault/server/pkg/cache"
	"github.com/bytevault/server/pkg/database"
	"github.com/bytevault/server/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Gateway handles API requests
type Gateway struct {
	db            *database.Database
	cache         *cache.Cache
	logger        *zap.Logger
	authenticator *Authenticator
	router        *chi.Mux
	storage       *storage.Service
	sharing       *sharing.Service
	engine        *billing.Engine
	adminToken    string
}

// Deps bundles everything the gateway needs. DB and Cache may be nil in
// tests; handlers that need them are guarded.
type Deps struct {
	DB            *database.Database
	Cache         *cache.Cache
	Logger        *zap.Logger
	Authenticator *Authenticator
	Storage       *storage.Service
	Sharing       *sharing.Service
	Engine        *billing.Engine
	AdminToken    string
}

// NewGateway creates a new API gateway
func NewGateway(deps Deps) *Gateway {
	g := &Gateway{
		db:            deps.DB,
		cache:         deps.Cache,
		logger:        deps.Logger,
		authenticator: deps.Authenticator,
		router:        chi.NewRouter(),
		storage:       deps.Storage,
		sharing:       deps.Sharing,
		engine:        deps.Engine,
		adminToken:    deps.AdminToken,
	}

	g.setupRoutes()
	return g
}

// setupRoutes configures the HTTP routes
func (g *Gateway) setupRoutes() {
	// Middleware
	g.router.Use(middleware.RequestID)
	g.router.Use(middleware.RealIP)
	g.router.Use(g.loggerMiddleware)
	g.router.Use(g.metricsMiddleware)
	g.router.Use(middleware.Recoverer)
	g.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	g.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.bytevault.io"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint
	g.router.Handle("/metrics", promhttp.Handler())

	// Health checks (no auth required)
	g.router.Get("/health", g.handleHealth)
	g.router.Get("/ready", g.handleReady)

	// User-facing endpoints (require an API key)
	g.router.Group(func(r chi.Router) {
		r.Use(g.authMiddleware)

		// Folders
		r.Post("/v1/folders", g.handleCreateFolder)
		r.Get("/v1/folders", g.handleListFolders)
		r.Put("/v1/folders/{folder_id}", g.handleRenameFolder)
		r.Delete("/v1/folders/{folder_id}", g.handleDeleteFolder)
		r.Get("/v1/folders/{folder_id}/files", g.handleListFiles)

		// Files (metadata only; blob transport is out of scope here)
		r.Post("/v1/files", g.handleRegisterFile)
		r.Get("/v1/files/{file_id}", g.handleStatFile)
		r.Delete("/v1/files/{file_id}", g.handleDeleteFile)

		// Groups and shares
		r.Post("/v1/groups", g.handleCreateGroup)
		r.Delete("/v1/groups/{group_id}", g.handleDeleteGroup)
		r.Get("/v1/groups/{group_id}/members", g.handleListMembers)
		r.Post("/v1/groups/{group_id}/members", g.handleAddMember)
		r.Delete("/v1/groups/{group_id}/members/{user_id}", g.handleRemoveMember)
		r.Post("/v1/shares", g.handleShareFile)
		r.Delete("/v1/shares", g.handleRevokeShare)
		r.Get("/v1/shares", g.handleListSharedFiles)

		// Billing
		r.Get("/v1/invoices", g.handleListInvoices)
		r.Get("/v1/usage", g.handleUsagePreview)
	})

	// Admin endpoints
	g.router.Group(func(r chi.Router) {
		r.Use(g.adminAuthMiddleware)

		r.Post("/admin/users", g.handleCreateUser)
		r.Post("/admin/api-keys", g.handleCreateAPIKey)
		r.Post("/admin/users/{user_id}/plan", g.handleSetPlanPrice)
		r.Post("/admin/billing/run", g.handleRunBilling)
	})
}

// ServeHTTP implements http.Handler
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// Middleware implementations

func (g *Gateway) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		g.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (g *Gateway) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			g.writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Support both "Bearer <key>" and the bare key
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		apiKey = strings.TrimSpace(apiKey)

		ctx := r.Context()
		userID, err := g.authenticator.ValidateAPIKey(ctx, apiKey)
		if err != nil {
			g.logger.Warn("authentication failed", zap.Error(err))
			g.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		ctx = contextWithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gateway) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminToken := r.Header.Get("X-Admin-Token")
		if adminToken == "" {
			g.writeError(w, http.StatusUnauthorized, "missing admin token")
			return
		}

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(adminToken), []byte(g.adminToken)) != 1 {
			g.logger.Warn("invalid admin token attempt",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			g.writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}

		g.logger.Info("admin action authenticated",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		next.ServeHTTP(w, r)
	})
}

// Handler implementations

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if g.db != nil {
		if err := g.db.Health(ctx); err != nil {
			g.writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	if g.cache != nil {
		if err := g.cache.Health(ctx); err != nil {
			g.writeError(w, http.StatusServiceUnavailable, "cache not ready")
			return
		}
	}

	g.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Response helpers

func (g *Gateway) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	g.writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}

// writeServiceError maps domain sentinels onto HTTP status codes. Unknown
// errors become a 500 with the detail kept out of the response body.
func (g *Gateway) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, sharing.ErrGroupNotFound),
		errors.Is(err, sharing.ErrShareNotFound):
		g.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrNotOwner), errors.Is(err, sharing.ErrNotOwner):
		g.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrFolderNotEmpty),
		errors.Is(err, storage.ErrFolderDeleted),
		errors.Is(err, storage.ErrFileDeleted):
		g.writeError(w, http.StatusConflict, err.Error())
	default:
		g.logger.Error("request failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
