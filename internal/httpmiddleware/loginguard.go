package httpmiddleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix = "meritboard:login:attempts:"
	lockKeyPrefix    = "meritboard:login:lock:"
	attemptWindow    = 15 * time.Minute
)

// LoginGuard locks out client IPs after repeated failed logins. State lives in
// Redis; when Redis is unreachable the guard lets requests through.
type LoginGuard struct {
	client *redis.Client
	log    *slog.Logger
}

// NewLoginGuard builds a guard over client.
func NewLoginGuard(client *redis.Client, log *slog.Logger) *LoginGuard {
	if log == nil {
		log = slog.Default()
	}
	return &LoginGuard{client: client, log: log}
}

// lockoutFor returns how long to lock a client after its n-th failure within
// the attempt window. Zero means no lock yet.
func lockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// Middleware rejects locked-out clients and records the outcome of the login
// handler that runs after it: 401 counts as a failure, 2xx clears the history.
func (g *LoginGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		ttl, err := g.client.TTL(ctx, lockKeyPrefix+ip).Result()
		if err != nil {
			g.log.Warn("login guard unavailable", "err", err)
			c.Next()
			return
		}
		if ttl > 0 {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": fmt.Sprintf("Too many failed attempts. Try again in %d seconds", int(ttl.Seconds())),
			})
			return
		}

		c.Next()

		switch status := c.Writer.Status(); {
		case status == http.StatusUnauthorized:
			g.recordFailure(ctx, ip)
		case status >= 200 && status < 300:
			g.reset(ctx, ip)
		}
	}
}

func (g *LoginGuard) recordFailure(ctx context.Context, ip string) {
	attemptKey := attemptKeyPrefix + ip
	attempts, err := g.client.Incr(ctx, attemptKey).Result()
	if err != nil {
		g.log.Warn("login guard: record failure", "ip", ip, "err", err)
		return
	}
	if attempts == 1 {
		g.client.Expire(ctx, attemptKey, attemptWindow)
	}
	if d := lockoutFor(attempts); d > 0 {
		if err := g.client.Set(ctx, lockKeyPrefix+ip, "locked", d).Err(); err != nil {
			g.log.Warn("login guard: lock", "ip", ip, "err", err)
			return
		}
		g.log.Info("login locked out", "ip", ip, "attempts", attempts, "for", d)
	}
}

func (g *LoginGuard) reset(ctx context.Context, ip string) {
	g.client.Del(ctx, attemptKeyPrefix+ip, lockKeyPrefix+ip)
}
