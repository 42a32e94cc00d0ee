// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a hardening middleware that attaches
// a conservative set of HTTP security headers suitable for a JSON API
// running behind a reverse proxy. HSTS is opt-in and only applied when the
// request actually arrived over HTTPS; no CSP is set since the API never
// serves HTML.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures the headers emitted by SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security for HTTPS requests.
	// Only enable when traffic is HTTPS end-to-end, including between
	// proxy and app.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS lifetime; 180 days when unset.
	HSTSMaxAge time.Duration
	// NoStore adds Cache-Control: no-store (plus legacy Pragma/Expires)
	// to prevent caching of sensitive responses.
	NoStore bool
	// EnablePolicy includes modern browser feature policies
	// (Permissions-Policy and X-Permitted-Cross-Domain-Policies). They
	// only have effect in browsers and are harmless for terminals.
	EnablePolicy bool
}

// SecurityHeaders returns a Gin middleware that adds conservative,
// production-ready HTTP security headers to each response.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	maxAge := opts.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 180 * 24 * time.Hour
	}
	hstsValue := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opts.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opts.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opts.EnableHSTS && (c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https") {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		c.Next()
	}
}
