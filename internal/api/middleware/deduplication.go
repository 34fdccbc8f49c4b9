package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-recipes/internal/pkg/common"
)

const defaultDedupWindow = time.Second

// requestCache 最近請求的指紋
type requestCache struct {
	mu        sync.Mutex
	requests  map[string]time.Time
	window    time.Duration
	lastSwept time.Time
}

// seen 記錄指紋，window 內重複出現時回傳 true
func (rc *requestCache) seen(fingerprint string, now time.Time) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	// 過期項目在寫入時順便清理
	if now.Sub(rc.lastSwept) > 10*rc.window {
		for k, t := range rc.requests {
			if now.Sub(t) > rc.window {
				delete(rc.requests, k)
			}
		}
		rc.lastSwept = now
	}

	if last, ok := rc.requests[fingerprint]; ok && now.Sub(last) <= rc.window {
		return true
	}
	rc.requests[fingerprint] = now
	return false
}

// Deduplication 同一使用者在 window 內送出相同的 POST 內容時回傳 429，避免重複建立；
// exempt 列出的路由（例如可連續累加的補貨）不檢查
func Deduplication(window time.Duration, exempt ...string) gin.HandlerFunc {
	if window <= 0 {
		window = defaultDedupWindow
	}
	skip := make(map[string]bool, len(exempt))
	for _, route := range exempt {
		skip[route] = true
	}
	cache := &requestCache{
		requests: make(map[string]time.Time),
		window:   window,
	}

	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost || skip[c.FullPath()] {
			c.Next()
			return
		}

		// 計算請求體哈希
		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}
			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		// 生成請求指紋
		fingerprint := strconv.FormatInt(OwnerID(c), 10) + ":" + c.Request.Method + ":" + c.Request.URL.Path
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		if cache.seen(fingerprint, time.Now()) {
			common.LogWarn("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Int64("owner_id", OwnerID(c)),
			)
			c.AbortWithStatusJSON(common.ErrTooManyRequests.Status, common.ErrorResponse{
				Code:    common.ErrTooManyRequests.Code,
				Message: "Request too frequent",
			})
			return
		}

		c.Next()
	}
}
