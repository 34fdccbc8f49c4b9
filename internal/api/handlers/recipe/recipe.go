package recipe

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pantry-recipes/internal/api/middleware"
	recipeService "pantry-recipes/internal/core/recipe"
	"pantry-recipes/internal/pkg/common"
)

// ReplaceIngredientsRequest 以新的食材文字取代
type ReplaceIngredientsRequest struct {
	IngredientsText string `json:"ingredients_text"`
}

// HandleListRecipes 列出食譜與可用性
func (h *Handler) HandleListRecipes(c *gin.Context) {
	recipes, err := h.recipes.ListRecipes(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// HandleGetRecipe 取得單一食譜
func (h *Handler) HandleGetRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// HandleCreateRecipe 建立食譜；回應為 {success, data|errors, warnings}
func (h *Handler) HandleCreateRecipe(c *gin.Context) {
	var req recipeService.RecipeInput
	if !bindJSON(c, &req) {
		return
	}

	res := h.ingredients.CreateRecipe(c.Request.Context(), middleware.OwnerID(c), req)
	c.JSON(resultStatus(res.Code, http.StatusCreated), res)
}

// HandleReplaceIngredients 編輯食譜的食材
func (h *Handler) HandleReplaceIngredients(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ReplaceIngredientsRequest
	if !bindJSON(c, &req) {
		return
	}

	res := h.ingredients.ReplaceIngredients(c.Request.Context(), middleware.OwnerID(c), id, req.IngredientsText)
	c.JSON(resultStatus(res.Code, http.StatusOK), res)
}

// HandleAvailability 列出缺少的食材，limit 省略時全部列出
func (h *Handler) HandleAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	info, err := h.recipes.Availability(c.Request.Context(), middleware.OwnerID(c), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
