package router

import (
	"net/http"
	"time"

	"github.com/badgeforge/badgeforge/internal/handler"
	"github.com/badgeforge/badgeforge/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"BadgeForge API v1","version":"0.1.0"}`))
	})

	// Issuer and badge class management
	mux.HandleFunc("POST /api/v1/issuers", h.CreateIssuer)
	mux.HandleFunc("GET /api/v1/issuers", h.ListIssuers)
	mux.HandleFunc("GET /api/v1/issuers/{id}", h.GetIssuer)
	mux.HandleFunc("GET /api/v1/issuers/{id}/key", h.GetIssuerKey)
	mux.HandleFunc("POST /api/v1/badges", h.CreateBadgeClass)
	mux.HandleFunc("GET /api/v1/badges", h.ListBadgeClasses)
	mux.HandleFunc("GET /api/v1/badges/{id}", h.GetBadgeClass)

	// Issuance (rate limited; signing decrypts key material)
	issueRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  30,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/v1/assertions", issueRateLimit(http.HandlerFunc(h.IssueAssertion)))
	mux.HandleFunc("GET /api/v1/assertions", h.ListAssertions)
	mux.HandleFunc("GET /api/v1/assertions/{id}", h.GetAssertion)
	mux.HandleFunc("POST /api/v1/assertions/{id}/revoke", h.RevokeAssertion)

	// Public verification endpoints (rate limited)
	verifyRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  60,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("GET /api/v1/assertions/{id}/verify", verifyRateLimit(http.HandlerFunc(h.VerifyAssertion)))
	mux.Handle("POST /api/v1/verify", verifyRateLimit(http.HandlerFunc(h.VerifyDocument)))

	// Key administration
	keyRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.HandleFunc("GET /api/v1/keys", h.ListKeys)
	mux.Handle("POST /api/v1/keys/rotate", keyRateLimit(http.HandlerFunc(h.RotateKey)))
	mux.Handle("POST /api/v1/keys/{id}/revoke", keyRateLimit(http.HandlerFunc(h.RevokeKey)))

	// Apply middleware stack
	var root http.Handler = mux

	// Security headers
	root = mw.SecurityHeaders(root)

	// Request logging
	root = mw.Logger(root)

	// Request ID
	root = mw.RequestID(root)

	// Panic recovery (outermost)
	root = mw.Recover(root)

	return root
}
