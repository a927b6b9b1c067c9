package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perSecond requests per IP with the given burst. A
// non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter, security *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			security.LogRateLimited(ip, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches the allow-list. Entries are
// full origins ("http://host:port"), bare hosts ("host:port") or "*". An
// empty list allows every origin.
func OriginAllowed(origin string, allowedOrigins []string) bool {
	origin = strings.TrimRight(origin, "/")
	if len(allowedOrigins) == 0 {
		return true
	}

	for _, o := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == "*" || origin == trimmed {
			return true
		}
		if !strings.Contains(trimmed, "://") {
			if parsed, err := url.Parse(origin); err == nil && parsed.Host == trimmed {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware configures CORS with security restrictions
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimRight(c.GetHeader("Origin"), "/")

		if origin != "" && OriginAllowed(origin, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IPWhitelist restricts access to a fixed set of IPs
type IPWhitelist struct {
	ips map[string]bool
}

// NewIPWhitelist creates a new IP whitelist
func NewIPWhitelist(ips []string) *IPWhitelist {
	wl := &IPWhitelist{
		ips: make(map[string]bool),
	}
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl.ips[ip] = true
		}
	}
	return wl
}

// IsAllowed checks if an IP is whitelisted
func (wl *IPWhitelist) IsAllowed(ip string) bool {
	// Allow localhost always
	if ip == "127.0.0.1" || ip == "::1" || ip == "localhost" {
		return true
	}

	// If no whitelist configured, allow all
	if len(wl.ips) == 0 {
		return true
	}

	// Strip port from IP if present
	ipOnly, _, _ := net.SplitHostPort(ip)
	if ipOnly == "" {
		ipOnly = ip
	}

	return wl.ips[ipOnly]
}

// IPWhitelistMiddleware enforces IP whitelisting
func IPWhitelistMiddleware(whitelist *IPWhitelist, security *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !whitelist.IsAllowed(ip) {
			security.LogDenied(ip)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "access denied"})
			return
		}
		c.Next()
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	log *logrus.Entry
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		log: logrus.StandardLogger().WithField("type", "middleware/security"),
	}
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	sl.log.WithFields(logrus.Fields{"ip": ip, "reason": reason}).Warn("failed authentication")
}

// LogTokenGenerated logs successful token generation
func (sl *SecurityLogger) LogTokenGenerated(viewer string) {
	sl.log.WithField("viewer", viewer).Info("viewer token generated")
}

// LogWebSocketConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, viewer string) {
	sl.log.WithFields(logrus.Fields{"ip": ip, "viewer": viewer}).Info("websocket connected")
}

// LogWebSocketDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	sl.log.WithFields(logrus.Fields{"ip": ip, "client": clientID}).Info("websocket disconnected")
}

// LogRateLimited logs requests rejected by the rate limiter
func (sl *SecurityLogger) LogRateLimited(ip string, path string) {
	sl.log.WithFields(logrus.Fields{"ip": ip, "path": path}).Warn("rate limit exceeded")
}

// LogDenied logs requests from IPs outside the whitelist
func (sl *SecurityLogger) LogDenied(ip string) {
	sl.log.WithField("ip", ip).Warn("access denied for non-whitelisted IP")
}

// InputValidator validates user input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks if token format is valid
func (iv *InputValidator) ValidateToken(token string) bool {
	// JWT tokens are in format: header.payload.signature
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateViewerName checks if a viewer name is safe to embed in a token
func (iv *InputValidator) ValidateViewerName(name string) bool {
	if len(name) < 1 || len(name) > 64 {
		return false
	}

	// Allow alphanumeric, hyphens, underscores, dots
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}

	return true
}
