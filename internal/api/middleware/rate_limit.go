package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pantry-recipes/internal/pkg/common"
)

// visitor 單一使用者（或 IP）的令牌桶
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 每個 key 一個令牌桶，閒置超過 idle 的 key 會被移除
type limiterSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSwept time.Time
}

func newLimiterSet(requests int, window time.Duration) *limiterSet {
	if window <= 0 {
		window = time.Minute
	}
	if requests <= 0 {
		requests = 1
	}
	return &limiterSet{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		// 閒置一個 window 後令牌已補滿，移除不影響限流結果
		idle:      10 * window,
		lastSwept: time.Now(),
	}
}

// allow 檢查 key 在 now 時是否還有令牌
func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSwept) > s.idle {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.idle {
				delete(s.visitors, k)
			}
		}
		s.lastSwept = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit 限流中間件，每個使用者（沒有時以 IP）各自一個令牌桶
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiters := newLimiterSet(requests, window)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if owner := OwnerID(c); owner > 0 {
			key = "owner:" + strconv.FormatInt(owner, 10)
		}

		if !limiters.allow(key, time.Now()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(common.ErrTooManyRequests.Status, common.ErrorResponse{
				Code:    common.ErrTooManyRequests.Code,
				Message: common.ErrTooManyRequests.Message,
			})
			return
		}

		c.Next()
	}
}
