// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// idempotency, and rate limiting, and mounts the websocket entrypoint next to
// the REST surface.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/auth"
	"github.com/hushwire/go-anonchat-backend/internal/config"
	"github.com/hushwire/go-anonchat-backend/internal/domain"
	"github.com/hushwire/go-anonchat-backend/internal/http/handlers"
	"github.com/hushwire/go-anonchat-backend/internal/http/middleware"
	"github.com/hushwire/go-anonchat-backend/internal/repo"
	"github.com/hushwire/go-anonchat-backend/internal/services"
	"github.com/hushwire/go-anonchat-backend/internal/ws"
)

// membershipRepoShim adapts the repository free functions to the
// services.MembershipRepo interface expected by the IdentityService. This
// keeps services decoupled from the concrete repo package while reusing
// existing functions.
type membershipRepoShim struct{}

// GetMembership proxies repo.GetMembership.
func (membershipRepoShim) GetMembership(ctx context.Context, db *gorm.DB, groupID, userID string) (*domain.Membership, error) {
	return repo.GetMembership(ctx, db, groupID, userID)
}

// GetMembershipByHandle proxies repo.GetMembershipByHandle.
func (membershipRepoShim) GetMembershipByHandle(ctx context.Context, db *gorm.DB, groupID, handle string) (*domain.Membership, error) {
	return repo.GetMembershipByHandle(ctx, db, groupID, handle)
}

// CountMembers proxies repo.CountMembers.
func (membershipRepoShim) CountMembers(ctx context.Context, db *gorm.DB, groupID string) (int64, error) {
	return repo.CountMembers(ctx, db, groupID)
}

// CreateMembership proxies repo.CreateMembership.
func (membershipRepoShim) CreateMembership(ctx context.Context, db *gorm.DB, groupID, userID, handle string) (*domain.Membership, error) {
	return repo.CreateMembership(ctx, db, groupID, userID, handle)
}

// moderationRepoShim adapts the repository free functions to the
// services.ModerationRepo interface expected by the ModerationService.
type moderationRepoShim struct{}

// GetMembershipByHandle proxies repo.GetMembershipByHandle.
func (moderationRepoShim) GetMembershipByHandle(ctx context.Context, db *gorm.DB, groupID, handle string) (*domain.Membership, error) {
	return repo.GetMembershipByHandle(ctx, db, groupID, handle)
}

// IncrementReportCount proxies repo.IncrementReportCount.
func (moderationRepoShim) IncrementReportCount(ctx context.Context, db *gorm.DB, userID string, banThreshold int) (*domain.User, error) {
	return repo.IncrementReportCount(ctx, db, userID, banThreshold)
}

// CreateBlock proxies repo.CreateBlock.
func (moderationRepoShim) CreateBlock(ctx context.Context, db *gorm.DB, blockerID, blockedID string) error {
	return repo.CreateBlock(ctx, db, blockerID, blockedID)
}

// groupStoreShim satisfies handlers.GroupStore over the repo free functions.
// Handlers never see the *gorm.DB directly.
type groupStoreShim struct{ db *gorm.DB }

func (g groupStoreShim) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return repo.GetGroup(ctx, g.db, id)
}

func (g groupStoreShim) GetGroupByCode(ctx context.Context, code string) (*domain.Group, error) {
	return repo.GetGroupByCode(ctx, g.db, code)
}

func (g groupStoreShim) ListMemberHandles(ctx context.Context, groupID string) ([]string, error) {
	return repo.ListMemberHandles(ctx, g.db, groupID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and
// rate limiting, CORS, health and metrics endpoints, then mounts the
// token-gated API (REST plus /ws) under the configured base path.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS
//  8. Gatekeeper (API group only)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//
// RegisterRoutes also builds the websocket hub on top of the same services
// and returns it so the entrypoint can publish or inspect rooms if needed.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) *ws.Hub {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db
	identitySvc := services.NewIdentityService(db, membershipRepoShim{})
	msgSvc := &services.MessageService{
		DB:           db,
		Retention:    cfg.MessageRetention,
		MaxTextRunes: cfg.MaxMessageRunes,
	}
	modSvc := services.NewModerationService(db, moderationRepoShim{})
	if cfg.BanThreshold > 0 {
		modSvc.BanThreshold = cfg.BanThreshold
	}

	gate := &auth.Gatekeeper{DB: db, Secret: []byte(cfg.TokenSecret)}

	hub := ws.NewHub(&ws.StoreAdapter{DB: db, Identity: identitySvc, Messages: msgSvc})

	h := handlers.New(identitySvc, groupStoreShim{db: db}, msgSvc, modSvc)
	h.AfterPost = func(ctx context.Context, msg *services.MessagePayload) {
		hub.Publish(ctx, msg)
	}
	h.RecordIdempotency = func(ctx context.Context, userID, groupID, key, messageID string, status int) {
		_, _ = repo.CreateIdempotency(ctx, db, userID, groupID, key, messageID, status, cfg.IdempotencyTTL)
	}
	h.LookupIdempotentMessage = func(ctx context.Context, userID, groupID, key string) *services.MessagePayload {
		rec, err := repo.GetIdempotency(ctx, db, userID, groupID, key, time.Now().UTC())
		if err != nil || rec == nil || rec.MessageID == "" {
			return nil
		}
		m, err := repo.GetMessage(ctx, db, rec.MessageID)
		if err != nil {
			return nil
		}
		return &services.MessagePayload{
			ID:        m.ID,
			GroupID:   m.GroupID,
			Handle:    m.Handle,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}

	// Realtime entrypoint. The websocket handler runs the gatekeeper itself
	// before the upgrade (clients pass the token as a query parameter when
	// headers are unavailable), so it mounts outside the REST auth group.
	base := groupWithPrefix(r, cfg.APIBasePath)
	base.GET("/ws", ws.ServeWS(hub, gate))

	// Token-gated REST API. The idempotency validator and the rate limiter
	// run after authentication: replay detection and the per-user bucket key
	// both need the resolved user ID, and the validator still precedes the
	// limiter so replays bypass it.
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gate.Middleware())
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, groupID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, groupID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Groups
		api.GET("/groups/:id", h.GetGroup)
		api.POST("/groups/join/:code", h.JoinGroup)
		api.GET("/groups/:id/members", h.ListGroupMembers)

		// Messages
		api.GET("/groups/:id/messages", h.ListMessages)
		api.POST("/groups/:id/messages", h.PostMessage)

		// Moderation
		api.POST("/users/report", h.ReportUser)
		api.POST("/users/block", h.BlockUser)
	}

	return hub
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
