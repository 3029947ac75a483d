package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/auth"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	callerKey       = "caller"
	requestIDHeader = "X-Request-ID"
)

// CORSMiddleware provides a configurable CORS middleware.
func CORSMiddleware(cfg config.CORS) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowOrigin := ""
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				allowOrigin = "*"
				break
			}
			if o == origin {
				allowOrigin = origin
				break
			}
		}

		if allowOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// RequestLogger stamps every request with an id and logs it when done.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// CallerMiddleware resolves the Bearer token into a scoreboard.Caller. With
// required unset, anonymous requests pass through as a plain user caller.
// A token that is present but invalid is always rejected.
func CallerMiddleware(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				util.Error(c, http.StatusUnauthorized, "Authorization header is required")
				c.Abort()
				return
			}
			c.Set(callerKey, scoreboard.Caller{Role: scoreboard.RoleUser})
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Error(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		claims, err := auth.ValidateJWT(parts[1], secret)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			util.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		role := scoreboard.RoleUser
		if claims.Role == string(scoreboard.RoleAdmin) {
			role = scoreboard.RoleAdmin
		}
		c.Set(callerKey, scoreboard.Caller{UserID: userID, Role: role})
		c.Next()
	}
}

// AdminCaller marks every request as coming from an admin. The admin router
// is expected to listen on a private address.
func AdminCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(callerKey, scoreboard.Caller{Role: scoreboard.RoleAdmin})
		c.Next()
	}
}

// CallerFrom returns the caller set by CallerMiddleware or AdminCaller.
func CallerFrom(c *gin.Context) scoreboard.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(scoreboard.Caller); ok {
			return caller
		}
	}
	return scoreboard.Caller{Role: scoreboard.RoleUser}
}

const (
	limiterCleanupThreshold = 500
	limiterMaxIdleAge       = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP and prunes idle
// buckets once the map grows past a threshold.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*ipEntry
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipEntry),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if len(i.ips) > limiterCleanupThreshold {
		cutoff := now.Add(-limiterMaxIdleAge)
		for k, e := range i.ips {
			if e.lastSeen.Before(cutoff) {
				delete(i.ips, k)
			}
		}
	}

	e, ok := i.ips[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			util.Error(c, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
