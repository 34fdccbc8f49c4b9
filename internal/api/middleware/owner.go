package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-recipes/internal/pkg/common"
)

const (
	// OwnerHeader 呼叫端以此標頭帶入使用者 ID
	OwnerHeader = "X-User-ID"
	ownerKey    = "owner_id"
)

// Owner 讀取並驗證使用者 ID，缺少或格式錯誤時回傳 401
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			common.LogDebug("Missing or invalid owner id",
				zap.String("value", raw),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(common.ErrUnauthorized.Status, common.ErrorResponse{
				Code:    common.ErrUnauthorized.Code,
				Message: common.ErrUnauthorized.Message,
			})
			return
		}
		c.Set(ownerKey, id)
		c.Next()
	}
}

// OwnerID 取得目前請求的使用者 ID，未經 Owner 中間件時為 0
func OwnerID(c *gin.Context) int64 {
	return c.GetInt64(ownerKey)
}
