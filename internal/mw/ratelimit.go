package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"evcharging-backend/internal/apperr"
)

const (
	visitorTTL     = 10 * time.Minute
	visitorCleanup = 5 * time.Minute
)

// IPRateLimiter stores a rate limiter for each client IP. Limiters of idle
// clients expire from the cache.
type IPRateLimiter struct {
	visitors *cache.Cache
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: cache.New(visitorTTL, visitorCleanup),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the rate limiter for an IP address and extends its lifetime.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, found := i.visitors.Get(ip); found {
		limiter := v.(*rate.Limiter)
		i.visitors.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	// Add fails if a concurrent request registered the IP first.
	if err := i.visitors.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		if v, found := i.visitors.Get(ip); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			Abort(c, apperr.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
