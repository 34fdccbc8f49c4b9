package recipe

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-recipes/internal/api/middleware"
	"pantry-recipes/internal/core/matching"
	recipeService "pantry-recipes/internal/core/recipe"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Handler 食譜、食材庫存與配對的 HTTP 處理器
type Handler struct {
	ingredients *recipeService.IngredientService
	groceries   *recipeService.GroceryService
	recipes     *recipeService.RecipeService
	matcher     *matching.IngredientMatcher
}

// NewHandler 創建新的處理器
func NewHandler(
	ingredients *recipeService.IngredientService,
	groceries *recipeService.GroceryService,
	recipes *recipeService.RecipeService,
	matcher *matching.IngredientMatcher,
) *Handler {
	return &Handler{
		ingredients: ingredients,
		groceries:   groceries,
		recipes:     recipes,
		matcher:     matcher,
	}
}

// Register 註冊路由，呼叫端需先掛上 Owner 中間件
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/ingredients/parse", h.HandleParse)
	rg.PUT("/ingredients/:id", h.HandleRenameIngredient)
	rg.POST("/match", h.HandleMatch)

	rg.GET("/groceries", h.HandleListGroceries)
	rg.POST("/groceries", h.HandleCreateGrocery)
	rg.PUT("/groceries/:id", h.HandleUpdateGrocery)
	rg.DELETE("/groceries/:id", h.HandleDeleteGrocery)
	rg.POST("/pantry", h.HandleAddToPantry)

	rg.GET("/recipes", h.HandleListRecipes)
	rg.POST("/recipes", h.HandleCreateRecipe)
	rg.GET("/recipes/:id", h.HandleGetRecipe)
	rg.PUT("/recipes/:id/ingredients", h.HandleReplaceIngredients)
	rg.GET("/recipes/:id/availability", h.HandleAvailability)
}

// bindJSON 解析請求體，失敗時直接回應 400
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := common.DecodeJSON(c.Request.Body, v); err != nil {
		c.JSON(common.ErrInvalidRequest.Status, common.ErrorResponse{
			Code:    common.ErrInvalidRequest.Code,
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return false
	}
	return true
}

// pathID 讀取路徑中的 ID，格式錯誤時直接回應 400
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(common.ErrInvalidRequest.Status, common.ErrorResponse{
			Code:    common.ErrInvalidRequest.Code,
			Message: "Invalid id",
		})
		return 0, false
	}
	return id, true
}

// respondError 將服務層錯誤轉為 HTTP 回應
func respondError(c *gin.Context, err error) {
	var custom *common.CustomError
	switch {
	case common.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, common.ErrorResponse{
			Code:    common.ErrCodeValidation,
			Message: "Validation failed",
			Details: common.ValidationMessages(err),
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(common.ErrNotFound.Status, common.ErrorResponse{
			Code:    common.ErrNotFound.Code,
			Message: common.ErrNotFound.Message,
		})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(common.ErrConflict.Status, common.ErrorResponse{
			Code:    common.ErrConflict.Code,
			Message: common.ErrConflict.Message,
		})
	case errors.As(err, &custom):
		c.JSON(custom.Status, common.ErrorResponse{Code: custom.Code, Message: custom.Message})
	default:
		common.LogError("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int64("owner_id", middleware.OwnerID(c)),
			zap.Error(err),
		)
		c.JSON(common.ErrInternalError.Status, common.ErrorResponse{
			Code:    common.ErrInternalError.Code,
			Message: common.ErrInternalError.Message,
		})
	}
}

// resultStatus 依結果代碼決定狀態碼
func resultStatus(code string, success int) int {
	switch code {
	case "":
		return success
	case common.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case common.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
