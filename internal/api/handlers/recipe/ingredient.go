package recipe

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pantry-recipes/internal/api/middleware"
	"pantry-recipes/internal/pkg/common"
)

// ParseRequest 食材文字解析請求
type ParseRequest struct {
	Text string `json:"text"`
}

// MatchRequest 名稱配對請求
type MatchRequest struct {
	Name string `json:"name"`
}

// RenameIngredientRequest 更改食譜食材名稱
type RenameIngredientRequest struct {
	Name string `json:"name"`
}

// HandleParse 解析多行食材文字，回傳草稿與備註
func (h *Handler) HandleParse(c *gin.Context) {
	var req ParseRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(c, common.NewValidationError("Text can't be blank"))
		return
	}

	c.JSON(http.StatusOK, h.ingredients.ParseIngredients(req.Text))
}

// HandleMatch 以名稱找出使用者最適合的食材庫存
func (h *Handler) HandleMatch(c *gin.Context) {
	var req MatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(c, common.NewValidationError("Name can't be blank"))
		return
	}

	g, err := h.matcher.MatchIngredientToGrocery(c.Request.Context(), middleware.OwnerID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, common.ErrorResponse{
			Code:    common.ErrCodeNotFound,
			Message: "No matching grocery",
		})
		return
	}
	c.JSON(http.StatusOK, g)
}

// HandleRenameIngredient 更改名稱並重新配對
func (h *Handler) HandleRenameIngredient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RenameIngredientRequest
	if !bindJSON(c, &req) {
		return
	}

	ing, err := h.ingredients.RenameIngredient(c.Request.Context(), middleware.OwnerID(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}
