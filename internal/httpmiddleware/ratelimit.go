package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleAfter is how long a client may stay silent before its limiter is dropped.
const idleAfter = 10 * time.Minute

// SimpleTokenBucket keeps one token bucket per client key.
type SimpleTokenBucket struct {
	burst     int
	limit     rate.Limit
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewSimpleTokenBucket creates a limiter allowing bursts of capacity requests
// and perMinute sustained requests per client. A zero capacity means perMinute.
func NewSimpleTokenBucket(capacity, perMinute int) *SimpleTokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &SimpleTokenBucket{
		burst:   capacity,
		limit:   rate.Limit(float64(perMinute) / 60),
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// GinMiddleware limits requests by client IP. A non-positive rate disables it.
func (l *SimpleTokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if wait, ok := l.take(key); !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (l *SimpleTokenBucket) allow(key string) bool {
	_, ok := l.take(key)
	return ok
}

// take spends one token for key. When none is left it reports how long until
// the next one arrives.
func (l *SimpleTokenBucket) take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	cl, ok := l.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.seen = now

	if cl.limiter.AllowN(now, 1) {
		return 0, true
	}
	missing := 1 - cl.limiter.TokensAt(now)
	return time.Duration(missing / float64(l.limit) * float64(time.Second)), false
}

func (l *SimpleTokenBucket) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleAfter {
		return
	}
	l.lastSweep = now
	for key, cl := range l.clients {
		if now.Sub(cl.seen) >= idleAfter {
			delete(l.clients, key)
		}
	}
}
